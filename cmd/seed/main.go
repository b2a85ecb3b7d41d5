// Command seed creates the schema and loads demo users and tickets.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/apprentice-helpdesk/internal/config"
	"github.com/iliyamo/apprentice-helpdesk/internal/database"
	"github.com/iliyamo/apprentice-helpdesk/internal/logging"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
	"github.com/iliyamo/apprentice-helpdesk/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile string
		file    string
		force   bool
	)
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "load environment variables from this file if it exists")
	flagSet.StringVarP(&file, "file", "f", "", "YAML seed file (default: built-in demo data)")
	flagSet.BoolVar(&force, "force", false, "insert tickets even when the table is not empty")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
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

	data, err := seed.Default()
	if file != "" {
		data, err = seed.LoadFile(file)
	}
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	s := &seed.Seeder{
		Users:      repository.NewUserRepo(db),
		Tickets:    repository.NewTicketRepo(db),
		BcryptCost: cfg.BcryptCost,
		Logger:     logger,
	}
	res, err := s.Apply(ctx, data, force)
	if err != nil {
		return err
	}
	logger.Info("seed complete",
		"users_created", res.UsersCreated,
		"users_skipped", res.UsersSkipped,
		"tickets_created", res.TicketsCreated)
	return nil
}
