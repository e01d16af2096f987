package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"signalPilot/internal/adapters/logger"
	"signalPilot/internal/domain"
	"signalPilot/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDT", "symbol to fetch")
	hours := flag.Int("hours", 24, "how many hours of history to fetch")
	out := flag.String("out", "", "output file (default data/<symbol>_ticks_<date>.csv)")
	flag.Parse()

	appLogger := logger.New("info", false)
	ctx := context.Background()

	client := futures.NewClient("", "")
	end := time.Now().UTC()
	start := end.Add(-time.Duration(*hours) * time.Hour)

	appLogger.Info(ctx, "Fetching aggregated trades", map[string]interface{}{
		"symbol": *symbol, "from": start, "to": end,
	})

	var ticks []domain.Tick
	fromID := int64(0)
	cursor := start
	for cursor.Before(end) {
		svc := client.NewAggTradesService().Symbol(*symbol).Limit(1000)
		if fromID > 0 {
			svc = svc.FromID(fromID)
		} else {
			svc = svc.StartTime(cursor.UnixMilli())
		}
		trades, err := svc.Do(ctx)
		if err != nil {
			appLogger.Error(ctx, err, "Error fetching aggregated trades")
			log.Fatalf("Error fetching aggregated trades: %v", err)
		}
		if len(trades) == 0 {
			break
		}
		for _, tr := range trades {
			if tr.Timestamp > end.UnixMilli() {
				cursor = end
				break
			}
			price, err := strconv.ParseFloat(tr.Price, 64)
			if err != nil {
				log.Fatalf("Error parsing trade price %q: %v", tr.Price, err)
			}
			volume, err := strconv.ParseFloat(tr.Quantity, 64)
			if err != nil {
				log.Fatalf("Error parsing trade quantity %q: %v", tr.Quantity, err)
			}
			ticks = append(ticks, domain.Tick{
				Symbol: *symbol,
				Time:   time.UnixMilli(tr.Timestamp).UTC(),
				Price:  price,
				Volume: volume,
				UnixMs: tr.Timestamp,
			})
		}
		last := trades[len(trades)-1]
		fromID = last.AggTradeID + 1
		cursor = time.UnixMilli(last.Timestamp).UTC()
	}
	appLogger.Info(ctx, "Fetched aggregated trades", map[string]interface{}{"count": len(ticks)})

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_ticks_%s_to_%s.csv", *symbol, start.Format("20060102"), end.Format("20060102"))
	}
	if err := utils.WriteTicksToCSV(ticks, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved ticks", map[string]interface{}{"filename": filename})
}
