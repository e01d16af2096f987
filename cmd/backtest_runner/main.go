package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"signalPilot/internal/adapters/csvfeed"
	"signalPilot/internal/adapters/eventbus"
	"signalPilot/internal/adapters/logger"
	"signalPilot/internal/adapters/paper"
	"signalPilot/internal/adapters/specfile"
	"signalPilot/internal/adapters/sqlite"
	"signalPilot/internal/backtest"
	"signalPilot/internal/clock"
	"signalPilot/internal/engine"
	"signalPilot/internal/indicator"
	"signalPilot/internal/ports"
	"signalPilot/internal/recorder"
	"signalPilot/internal/strategy"
)

func main() {
	specPath := flag.String("spec", "./configs/strategies.yaml", "strategy and indicator definitions file")
	tickFiles := flag.String("ticks", "", "comma-separated tick CSV files")
	balance := flag.Float64("balance", 10000, "initial paper balance")
	stepMs := flag.Int("step-ms", 1000, "virtual scheduler cadence in milliseconds")
	accel := flag.Float64("accel", 0, "replay acceleration factor (0 = as fast as possible)")
	dbPath := flag.String("db", "", "optional SQLite path for the decision log (default in-memory)")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	appLogger := logger.New(*logLevel, false)
	ctx := context.Background()

	if *tickFiles == "" {
		log.Fatal("FATAL: -ticks is required")
	}
	feed, err := csvfeed.Load(appLogger, strings.Split(*tickFiles, ",")...)
	if err != nil {
		log.Fatalf("FATAL: Failed to load tick files: %v", err)
	}
	ticks := feed.Ticks()
	if len(ticks) == 0 {
		log.Fatal("FATAL: Tick files contain no ticks")
	}

	store, err := specfile.Load(*specPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load definitions file: %v", err)
	}
	variants, _ := store.LoadVariants(ctx)
	specs, _ := store.LoadStrategies(ctx)

	indicators, err := indicator.New(indicator.Config{Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize indicator engine: %v", err)
	}
	if err := indicators.LoadVariants(variants); err != nil {
		log.Fatalf("FATAL: Indicator variant set failed validation: %v", err)
	}

	registry := strategy.NewRegistry()
	registry.Swap(strategy.BuildSnapshot(ctx, specs, indicators, appLogger))

	var decisionLog ports.DecisionLog = recorder.NewMemory()
	if *dbPath != "" {
		sqliteLog, err := sqlite.NewDecisionLog(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize decision log: %v", err)
		}
		defer sqliteLog.Close()
		decisionLog = sqliteLog
	}

	replay := clock.NewReplay(ticks[0].Time)
	gateway, err := paper.New(paper.Config{
		InitialBalance: *balance,
		Logger:         appLogger,
		Clock:          replay,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize paper gateway: %v", err)
	}

	eng, err := engine.New(engine.Config{}, engine.Deps{
		Logger:     appLogger,
		Clock:      replay,
		Indicators: indicators,
		Registry:   registry,
		Locks:      engine.NewLockManager(replay),
		Gateway:    gateway,
		Recorder:   decisionLog,
		Publisher:  eventbus.New(appLogger),
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize execution engine: %v", err)
	}

	runner, err := backtest.NewRunner(backtest.Config{
		StepInterval: time.Duration(*stepMs) * time.Millisecond,
		Acceleration: *accel,
		Logger:       appLogger,
	}, replay, eng, gateway)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize backtest runner: %v", err)
	}

	report, err := runner.Run(ctx, ticks, *balance)
	if err != nil {
		log.Fatalf("FATAL: Backtest failed: %v", err)
	}

	printReport(report)
}

func printReport(r *backtest.Report) {
	fmt.Println("=== Backtest Report ===")
	fmt.Printf("Total Trades:       %d\n", r.TotalTrades)
	fmt.Printf("Winning Trades:     %d\n", r.WinningTrades)
	fmt.Printf("Losing Trades:      %d\n", r.LosingTrades)
	fmt.Printf("Win Rate:           %.2f%%\n", r.WinRate*100)
	fmt.Printf("Total Profit:       %.2f\n", r.TotalProfit)
	fmt.Printf("Average Win:        %.2f\n", r.AverageWin)
	fmt.Printf("Average Loss:       %.2f\n", r.AverageLoss)
	fmt.Printf("Profit Factor:      %.2f\n", r.ProfitFactor)
	fmt.Printf("Expectancy:         %.2f\n", r.Expectancy)
	fmt.Printf("Sharpe Ratio:       %.2f\n", r.SharpeRatio)
	fmt.Printf("Max Drawdown:       %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("Initial Balance:    %.2f\n", r.InitialBalance)
	fmt.Printf("Final Balance:      %.2f\n", r.FinalBalance)
	fmt.Printf("Return on Invest:   %.2f%%\n", r.ReturnOnInvestment*100)
	fmt.Printf("Avg Trade Duration: %s\n", r.AverageTradeDuration)
}
