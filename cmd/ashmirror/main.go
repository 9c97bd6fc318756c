// Package main runs a mirror process until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	ashmirror "github.com/Borislavv/go-ash-mirror"
	"github.com/Borislavv/go-ash-mirror/config"
	"github.com/Borislavv/go-ash-mirror/internal/telemetry"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "path to the YAML configuration")
		warm    = flag.Bool("warm", false, "mirror the first page of the client's guilds on start")
		debug   = flag.Bool("debug", false, "enable debug logs")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	logger := slog.New(telemetry.NewZerologHandler(zl))

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		zl.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := ashmirror.New(ctx, cfg, logger)
	if err != nil {
		zl.Fatal().Err(err).Msg("init mirror")
	}

	if *warm {
		if cfg.Rest.Token == "" {
			logger.Warn("warm-up skipped: no token configured")
		} else if guilds, err := m.Guilds().BulkFetch(ctx, nil, nil, 0); err != nil {
			logger.Error("warm-up failed", "err", err)
		} else {
			logger.Info("guilds mirrored", "count", len(guilds))
		}
	}

	if err = m.Run(ctx); err != nil {
		zl.Fatal().Err(err).Msg("shutdown")
	}
}

func loadConfig(path string) (*config.Mirror, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg := &config.Mirror{}
	if err := config.ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.AdjustConfig()
	return cfg, nil
}
