package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/devmike09/Converter-Bot/internal/config"
	"github.com/devmike09/Converter-Bot/internal/consts"
	"github.com/devmike09/Converter-Bot/internal/logger"
	"github.com/devmike09/Converter-Bot/internal/metrics"
	"github.com/devmike09/Converter-Bot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Converter bot is starting", map[string]interface{}{
		"log_level":   cfg.LogLevel,
		"storage_dir": cfg.StorageDir,
		"gated":       cfg.HasRequiredChannel(),
		"has_metrics": cfg.HasMetricsConfig(),
	})

	bot, err := telegram.NewBot(cfg)
	if err != nil {
		logger.Error("Failed to create Telegram bot", map[string]interface{}{
			"error": err.Error(),
		})
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Files left behind by crashed handlers or abandoned sessions are
	// swept on a timer.
	go bot.Area().RunJanitor(ctx, consts.JanitorInterval, cfg.FileTTL)

	if cfg.HasMetricsConfig() {
		server := metrics.StartServer(cfg.MetricsAddr)
		defer server.Close()
	}

	// Stop flips the update stream closed, which unblocks Start below.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info("Shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})
		bot.Stop()
	}()

	logger.InfoMsg("🤖 Ready to convert, zip and relay your files!")

	if err := bot.Start(); err != nil {
		logger.Error("Bot error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
