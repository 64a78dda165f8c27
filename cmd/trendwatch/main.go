package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trendzbr/trendwatch/internal/config"
	"github.com/trendzbr/trendwatch/internal/detector"
	"github.com/trendzbr/trendwatch/internal/history"
	"github.com/trendzbr/trendwatch/internal/kv"
	"github.com/trendzbr/trendwatch/internal/logger"
	"github.com/trendzbr/trendwatch/internal/scraper"
	"github.com/trendzbr/trendwatch/internal/store"
	"github.com/trendzbr/trendwatch/internal/telegram"
	"github.com/trendzbr/trendwatch/internal/worker"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	dryRun     = flag.Bool("dry-run", false, "Use an in-memory state store instead of Redis")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()
	logger.Info("Configuration loaded from %s", *configPath)

	var backend kv.Store
	if *dryRun {
		backend = kv.NewMemoryStore()
		logger.Info("Dry run: using in-memory state store")
	} else {
		backend, err = kv.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis: %v", err)
		}
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close state store: %v", err)
		}
	}()

	snapshots := store.NewSnapshotStore(backend, cfg.Redis.KeyPrefix)
	ledger := store.NewLedger(backend, cfg.Redis.KeyPrefix)

	fetcher := scraper.NewClient(scraper.Config{
		HomeURL:           cfg.Scraper.HomeURL,
		MarketURLTemplate: cfg.Scraper.MarketURLTemplate,
		UserAgent:         cfg.Scraper.UserAgent,
		Timeout:           cfg.Scraper.Timeout,
		MaxRetries:        cfg.Scraper.MaxRetries,
		RetryDelayBase:    cfg.Scraper.RetryDelayBase,
	})

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(
			cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxPerCycle, cfg.Telegram.SendDelay,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	var archive *history.Archive
	if cfg.History.Enabled {
		archive, err = history.New(cfg.History.DBPath, cfg.History.MaxAlerts)
		if err != nil {
			logger.Fatal("Failed to initialize alert archive: %v", err)
		}
		defer func() {
			if err := archive.Close(); err != nil {
				logger.Error("Failed to close alert archive: %v", err)
			}
		}()
	}

	detConfig := detector.Config{
		OddsChangeThresholdPP: cfg.Detector.OddsChangeThresholdPP,
		OddsCooldown:          cfg.Detector.OddsCooldown,
		ClosingWindowsHours:   cfg.Detector.ClosingWindowsHours,
		ClosingDedupTTL:       cfg.Detector.ClosingDedupTTL,
	}

	// Interface-typed locals keep the nil checks inside the worker honest.
	var transport worker.Transport
	if telegramClient != nil {
		transport = telegramClient
	}
	var archiver worker.Archiver
	if archive != nil {
		archiver = archive
	}

	w := worker.New(snapshots, ledger, fetcher, transport, archiver, detConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
		if err := telegramClient.SendStartup(); err != nil {
			logger.Warn("Failed to send startup notification: %v", err)
		}
	}

	logger.Info("Starting monitoring service (interval: %v, odds threshold: %.1fpp, windows: %v)",
		cfg.Scraper.PollInterval,
		cfg.Detector.OddsChangeThresholdPP,
		cfg.Detector.ClosingWindowsHours,
	)

	ticker := time.NewTicker(cfg.Scraper.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Monitoring cycle failed: %v", err)
			if telegramClient != nil {
				// The error cooldown keeps a persistent failure from
				// spamming the chat every cycle.
				canSend, ledgerErr := ledger.Record(ctx, store.ClassError, "cycle", cfg.Detector.ErrorCooldown)
				if ledgerErr != nil {
					logger.Warn("Failed to check error cooldown: %v", ledgerErr)
					return
				}
				if canSend {
					if sendErr := telegramClient.SendError(err); sendErr != nil {
						logger.Warn("Failed to send error notification: %v", sendErr)
					}
				}
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	runCycle := func() {
		logger.Debug("Starting monitoring cycle")
		_, err := w.RunCycle(ctx)
		handleCycleResult(err)
	}

	runCycle()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return
		case <-ticker.C:
			runCycle()
		}
	}
}
