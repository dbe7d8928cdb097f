package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"shortcast/internal/config"
	"shortcast/internal/daemon"
	"shortcast/internal/deps"
	"shortcast/internal/logging"
	"shortcast/internal/notifications"
	"shortcast/internal/pipeline"
	"shortcast/internal/publish"
	"shortcast/internal/queue"
	"shortcast/internal/workflow"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, found, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if found {
		logger.Info("configuration loaded", logging.String("path", configPath))
	} else {
		logger.Info("no configuration file found, using defaults")
	}

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	for _, status := range statuses {
		if !status.Available {
			logger.Warn("external dependency unavailable",
				logging.String("dependency", status.Name),
				logging.String("detail", status.Detail))
		}
	}
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logger.Warn("processing will fail until required binaries are installed",
			logging.String("missing", strings.Join(missing, ", ")))
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		os.Exit(1)
	}

	notifier := notifications.NewService(cfg)
	processor := pipeline.New(cfg, logger)
	publisher := publish.NewUploader(cfg, logger)
	orchestrator := workflow.NewOrchestrator(cfg, store, logger, notifier, processor, publisher)

	d, err := daemon.New(cfg, store, logger, orchestrator, notifier)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("shortcastd running", logging.String("api_bind", cfg.Paths.APIBind))

	<-ctx.Done()
	logger.Info("shutting down")
	d.Stop()
}
