package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Simplici0/plmcost/internal/analysis"
	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/config"
	"github.com/Simplici0/plmcost/internal/db"
	"github.com/Simplici0/plmcost/internal/history"
	"github.com/Simplici0/plmcost/internal/migrations"
	"github.com/Simplici0/plmcost/internal/narrative"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Load(config.NewLogger("error", true, os.Stderr))
	log := config.NewLogger(cfg.LogLevel, cfg.IsDev(), os.Stderr)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	hist := history.NewLog(history.NewSQLiteStore(database), log)
	hist.Load(ctx)

	var writer narrative.Writer = narrative.Disabled{}
	if cfg.GeminiAPIKey != "" {
		gw, err := narrative.NewGeminiWriter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return fmt.Errorf("creating narrative writer: %w", err)
		}
		writer = gw
	}

	app := &App{
		Catalog:  cat,
		History:  hist,
		Analysis: analysis.NewService(cat, writer, hist, cfg.NarrativeTimeout, log),
	}
	return newRootCmd(app).ExecuteContext(ctx)
}
