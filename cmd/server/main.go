package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atlastlabs/yatra/pkg/agent"
	"github.com/atlastlabs/yatra/pkg/config"
	"github.com/atlastlabs/yatra/pkg/language"
	"github.com/atlastlabs/yatra/pkg/server"
	"github.com/atlastlabs/yatra/pkg/session"
	"github.com/atlastlabs/yatra/pkg/store"
	"github.com/atlastlabs/yatra/pkg/translate"
)

var (
	configPath = flag.String("config", "", "Path to config file (optional, env overrides apply)")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Configuration failures are fatal: there is no safe degraded mode for a
	// missing credential.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.WithFields(logrus.Fields{
		"port":      cfg.Server.Port,
		"model":     cfg.Gemini.Model,
		"mode":      cfg.Agent.Mode,
		"endpoints": len(cfg.Endpoints()),
		"log_level": level.String(),
	}).Info("Starting Yatra travel assistant")

	pool, err := translate.NewPoolFromEndpoints(cfg.Endpoints(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build translation pool")
	}

	// Verify the translation endpoints are reachable. The pool fails open,
	// so a cold pool starts anyway.
	healthCtx, healthCancel := context.WithTimeout(context.Background(), 10*time.Second)
	logger.Info("Checking translation endpoint health...")
	if healthy := pool.CheckHealth(healthCtx); healthy == 0 {
		logger.Warn("No translation endpoint is healthy, continuing; replies stay in English until one recovers")
	} else {
		logger.WithFields(logrus.Fields{
			"healthy": healthy,
			"total":   pool.Size(),
		}).Info("Translation endpoint health check passed")
	}
	healthCancel()

	completion, err := agent.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create completion client")
	}

	supported := make([]language.Code, 0, len(cfg.Language.Supported))
	for _, s := range cfg.Language.Supported {
		supported = append(supported, language.ParseCode(s))
	}
	normalizer := language.NewNormalizer(supported, nil, pool, logger)

	// The store must not block startup: a dead database means no history,
	// not a dead assistant.
	var records store.Store = store.NoopStore{}
	if cfg.Store.Enabled {
		records = store.NewLibSQLStore(cfg.Store.Path, logger)
	}
	defer records.Close()

	sessions := session.NewManager(func() *agent.Assistant {
		return agent.NewAssistant(agent.Config{
			Normalizer: normalizer,
			Pool:       pool,
			Completion: completion,
			Window:     cfg.Agent.Window,
			Mode:       agent.ReplyMode(cfg.Agent.Mode),
			Persona:    cfg.Agent.Persona,
			Logger:     logger,
		})
	}, cfg.Session.TTL, logger)

	stopPruning := make(chan struct{})
	go sessions.StartPruning(cfg.Session.PruneInterval, stopPruning)
	defer close(stopPruning)

	httpServer := server.NewHTTPServer(sessions, records, logger, cfg.Server.Port)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.WithError(err).Fatal("Server error")
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("Graceful shutdown failed")
		} else {
			logger.Info("Server stopped gracefully")
		}
	}
}
