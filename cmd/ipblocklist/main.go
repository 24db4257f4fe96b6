package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/config"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/pipeline"
	"github.com/xxxsen/common/logger"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// logger not initialised yet, fallback to stderr
		log.Fatalf("init config failed, err:%v", err)
	}
	logkit := logger.Init(cfg.Log.File, cfg.Log.Level, int(cfg.Log.FileCount),
		int(cfg.Log.FileSize), int(cfg.Log.KeepDays), cfg.Log.Console)
	defer logkit.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Pprof.Enable {
		startPprofServer(ctx, cfg.Pprof.Bind, logkit)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		logkit.Fatal("build pipeline failed", zap.Error(err))
	}

	logkit.Info("aggregation pass starting",
		zap.Int("sources", len(cfg.Sources)),
		zap.Int("countries", len(cfg.Countries)),
		zap.String("output", cfg.Output.Dir))
	snap, err := p.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logkit.Warn("aggregation pass interrupted")
			return
		}
		logkit.Fatal("aggregation pass failed", zap.Error(err))
	}
	logkit.Info("aggregation pass complete",
		zap.Int("raw_lines", snap.RawLines),
		zap.Int("invalid_lines", snap.InvalidLines),
		zap.Int("merged_blocks", snap.NetworksMerged),
		zap.Uint64("aggregated_addresses", snap.AggregatedAddresses),
		zap.Int("countries", len(snap.Countries)),
		zap.Uint64("combined_addresses", snap.CombinedAddresses))
}
