// Package main is the entry point for the frontier portfolio optimization
// service. It wires the price history store, the Monte Carlo simulation
// engine, the constrained optimizer and the HTTP API together.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/charts"
	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/aristath/frontier/internal/modules/history"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/results"
	"github.com/aristath/frontier/internal/modules/returns"
	"github.com/aristath/frontier/internal/modules/runs"
	"github.com/aristath/frontier/internal/modules/simulation"
	"github.com/aristath/frontier/internal/scheduler"
	"github.com/aristath/frontier/internal/server"
	"github.com/aristath/frontier/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info"})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting frontier")

	historyDB, err := database.New(database.Config{Path: cfg.HistoryDBPath(), Name: "history"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()
	if err := historyDB.InitSchema(history.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history schema")
	}

	resultsDB, err := database.New(database.Config{Path: cfg.ResultsDBPath(), Name: "results"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer resultsDB.Close()
	if err := resultsDB.InitSchema(results.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize results schema")
	}

	historyRepo := history.NewRepository(historyDB.Conn(), log)
	resultsRepo := results.NewRepository(resultsDB.Conn(), log)

	calculator := returns.NewCalculator(cfg.Annualization, log)
	engine := simulation.NewEngine(log)
	analyzer := frontier.NewAnalyzer(log)
	optimizer := optimization.NewOptimizer(&optimization.GradientSolver{}, log)
	chartService := charts.NewService(log)

	runService := runs.NewService(
		historyRepo,
		calculator,
		engine,
		analyzer,
		optimizer,
		resultsRepo,
		cfg.Annualization,
		log,
	)

	// Optional scheduled runs over the configured universe.
	var sched *scheduler.Scheduler
	if cfg.RunSchedule != "" && len(cfg.Universe) >= 2 {
		sched = scheduler.New(log)
		job := &scheduler.RunUniverseJob{
			Service: runService,
			Params: runs.Params{
				Tickers:        cfg.Universe,
				Count:          cfg.SimulationCount,
				RiskFreeRate:   cfg.RiskFreeRate,
				PortfolioValue: cfg.PortfolioValue,
				LookbackDays:   cfg.LookbackDays,
				WeightMin:      cfg.WeightMin,
				WeightMax:      cfg.WeightMax,
			},
		}
		if err := sched.AddJob(cfg.RunSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.RunSchedule).Msg("Failed to register scheduled run")
		}
		sched.Start()
	}

	srv := server.New(server.Config{
		Log:        log,
		AppConfig:  cfg,
		RunService: runService,
		History:    historyRepo,
		Results:    resultsRepo,
		Charts:     chartService,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Frontier stopped")
}
