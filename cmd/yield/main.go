// ====================================
// File: cmd/yield/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-yield/internal/config"
	"github.com/rovshanmuradov/lp-yield/internal/dex/pancakeswap"
	"github.com/rovshanmuradov/lp-yield/internal/logger"
	"github.com/rovshanmuradov/lp-yield/internal/monitor"
	"github.com/rovshanmuradov/lp-yield/internal/yield"
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	v := config.NewViper()
	if err := config.BindFlags(v, fs); err != nil {
		fmt.Fprintf(os.Stderr, "flags: %v\n", err)
		os.Exit(2)
	}
	_ = fs.Parse(os.Args[1:])

	configPath, _ := fs.GetString("config")
	cfg, err := config.Load(v, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter, err := monitor.NewReporter(cfg.ReportFormat, os.Stdout)
	if err != nil {
		log.Fatal("Failed to create reporter", zap.Error(err))
	}

	fetcher := pancakeswap.NewService(pancakeswap.Config{
		TokenPriceURL: cfg.TokenPriceURL,
		PairsURL:      cfg.PairsURL,
		PairKey:       cfg.PairKey,
		Timeout:       cfg.RequestTimeout,
		Retries:       cfg.FetchRetries,
	}, log.Logger)

	m := monitor.NewYieldMonitor(monitor.Config{
		PairName: cfg.PairName,
		Interval: cfg.Interval,
		Fetcher:  fetcher,
		Calc:     yield.NewCalculator(cfg.Constants(), log.Logger),
		Reporter: reporter,
		Logger:   log.Logger,
	})

	if cfg.Once {
		m.RunOnce(ctx)
		return
	}

	if err := m.Run(ctx); err != nil {
		log.Error("Yield monitor failed", zap.Error(err))
	}
	log.Info("👋 Shutting down")
}
