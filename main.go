package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os/signal"
	"syscall"

	"signalPilot/config"
	"signalPilot/internal/adapters/binancefeed"
	"signalPilot/internal/adapters/eventbus"
	"signalPilot/internal/adapters/logger"
	"signalPilot/internal/adapters/paper"
	"signalPilot/internal/adapters/specfile"
	"signalPilot/internal/adapters/sqlite"
	"signalPilot/internal/clock"
	"signalPilot/internal/engine"
	"signalPilot/internal/indicator"
	"signalPilot/internal/strategy"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel, cfg.LogJSON)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Load strategy and indicator definitions
	store, err := specfile.Load(cfg.SpecPath)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load definitions file")
		log.Fatalf("FATAL: Failed to load definitions file: %v", err)
	}
	variants, err := store.LoadVariants(ctx)
	if err != nil {
		log.Fatalf("FATAL: Failed to load indicator variants: %v", err)
	}
	specs, err := store.LoadStrategies(ctx)
	if err != nil {
		log.Fatalf("FATAL: Failed to load strategies: %v", err)
	}

	// 4. Initialize the indicator engine and validate the variant set
	indicators, err := indicator.New(indicator.Config{Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize indicator engine: %v", err)
	}
	if err := indicators.LoadVariants(variants); err != nil {
		appLogger.Error(ctx, err, "FATAL: Indicator variant set failed validation")
		log.Fatalf("FATAL: Indicator variant set failed validation: %v", err)
	}

	// 5. Build the strategy snapshot
	registry := strategy.NewRegistry()
	snap := strategy.BuildSnapshot(ctx, specs, indicators, appLogger)
	registry.Swap(snap)
	appLogger.Info(ctx, "Strategy definitions loaded", map[string]interface{}{
		"active": len(snap.Active()), "invalid": len(snap.Invalid()),
	})

	// 6. Initialize the decision log (SQLite adapter)
	decisionLog, err := sqlite.NewDecisionLog(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize decision log")
		log.Fatalf("FATAL: Failed to initialize decision log: %v", err)
	}
	defer func() {
		if err := decisionLog.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing decision log")
		}
	}()
	appLogger.Info(ctx, "Decision log initialized", map[string]interface{}{"dbPath": cfg.DBPath})

	// 7. Initialize the paper order gateway against the wall clock
	wall := clock.NewWall()
	gateway, err := paper.New(paper.Config{
		InitialBalance: cfg.InitialBalance,
		Logger:         appLogger,
		Clock:          wall,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize paper gateway: %v", err)
	}

	// 8. Initialize the execution engine
	eng, err := engine.New(engine.Config{TickInterval: cfg.TickInterval}, engine.Deps{
		Logger:     appLogger,
		Clock:      wall,
		Indicators: indicators,
		Registry:   registry,
		Locks:      engine.NewLockManager(wall),
		Gateway:    gateway,
		Recorder:   decisionLog,
		Publisher:  eventbus.New(appLogger),
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize execution engine")
		log.Fatalf("FATAL: Failed to initialize execution engine: %v", err)
	}

	// 9. Start the live tick feed and pump it into the engine and gateway
	feed, err := binancefeed.New(binancefeed.Config{
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance feed: %v", err)
	}
	ticks, err := feed.Stream(ctx, cfg.Symbols)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to start tick stream")
		log.Fatalf("FATAL: Failed to start tick stream: %v", err)
	}
	go func() {
		for tick := range ticks {
			eng.OnTick(tick)
			gateway.OnTick(tick)
		}
	}()

	// 10. Run the evaluation scheduler until interrupted
	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error(ctx, err, "Execution engine exited with error")
		log.Fatalf("FATAL: Execution engine exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
