package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"signalPilot/internal/adapters/logger"
	"signalPilot/internal/adapters/sqlite"
	"signalPilot/internal/domain"
)

func main() {
	dbPath := flag.String("db", "./data/decisions.db", "SQLite decision log path")
	symbol := flag.String("symbol", "", "filter by symbol")
	limit := flag.Int("limit", 50, "maximum records to show")
	flag.Parse()

	appLogger := logger.New("warn", false)
	ctx := context.Background()

	decisionLog, err := sqlite.NewDecisionLog(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("Error opening decision log: %v", err)
	}
	defer decisionLog.Close()

	var records []*domain.DecisionRecord
	if *symbol != "" {
		records, err = decisionLog.BySymbol(ctx, *symbol, *limit)
	} else {
		records, err = decisionLog.Recent(ctx, *limit)
	}
	if err != nil {
		log.Fatalf("Error reading decisions: %v", err)
	}
	if len(records) == 0 {
		log.Println("No decisions recorded.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Time\tStrategy\tSymbol\tTransition\tOutcome\tIndicators\t")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.StrategyID,
			rec.Symbol,
			rec.Transition,
			rec.Outcome,
			formatSnapshot(rec.Snapshot),
		)
	}
	w.Flush()

	printTransitionCounts(records)
}

func formatSnapshot(snap domain.IndicatorSnapshot) string {
	if len(snap) == 0 {
		return "-"
	}
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " "
		}
		s := snap[id]
		out += fmt.Sprintf("%s=%.4f", id, s.Value)
		if s.Freshness == domain.FreshnessDegraded {
			out += "(degraded)"
		}
	}
	return out
}

func printTransitionCounts(records []*domain.DecisionRecord) {
	counts := make(map[domain.Section]int)
	for _, rec := range records {
		counts[rec.Transition]++
	}
	sections := make([]domain.Section, 0, len(counts))
	for s := range counts {
		sections = append(sections, s)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i] < sections[j] })

	fmt.Println("\n## Transitions")
	for _, s := range sections {
		fmt.Printf("%-4s %d\n", s, counts[s])
	}
}
