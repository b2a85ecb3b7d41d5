package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/apprentice-helpdesk/internal/config"
	"github.com/iliyamo/apprentice-helpdesk/internal/database"
	"github.com/iliyamo/apprentice-helpdesk/internal/logging"
	"github.com/iliyamo/apprentice-helpdesk/internal/queue"
	"github.com/iliyamo/apprentice-helpdesk/internal/router"
	"github.com/iliyamo/apprentice-helpdesk/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile string
	flagSet := pflag.NewFlagSet("helpdesk", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "load environment variables from this file if it exists")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// Real environment variables win over the file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.Events.Enabled {
		publisher = queue.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Queue, logger)
		consumer := &queue.Consumer{
			URL:    cfg.Events.URL,
			Queue:  cfg.Events.Queue,
			LogDir: cfg.Events.LogDir,
			Logger: logger,
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ticket consumer stopped", "err", err)
			}
		}()
	}

	e, err := router.New(router.App{
		Config:    cfg,
		RateLimit: config.LoadRateLimitConfig(),
		DB:        db,
		Redis:     rdb,
		Publisher: publisher,
		Codec:     utils.NewTokenCodec(cfg.Secret),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DB.Driver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
		return err
	}
	return nil
}
