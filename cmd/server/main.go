package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Simplici0/plmcost/internal/analysis"
	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/config"
	"github.com/Simplici0/plmcost/internal/db"
	"github.com/Simplici0/plmcost/internal/history"
	"github.com/Simplici0/plmcost/internal/migrations"
	"github.com/Simplici0/plmcost/internal/narrative"
)

//go:embed web/templates/*.html
var webFS embed.FS

type server struct {
	cat      *catalog.Catalog
	analysis *analysis.Service
	history  *history.Log
	sessions *sessionStore
	pages    map[string]*template.Template
	log      zerolog.Logger
}

func newServer(cat *catalog.Catalog, svc *analysis.Service, hist *history.Log, sessions *sessionStore, log zerolog.Logger) (*server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &server{
		cat:      cat,
		analysis: svc,
		history:  hist,
		sessions: sessions,
		pages:    pages,
		log:      log,
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(s.sessions.middleware)

	r.Get("/", s.handleHome)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/overrides", s.handleOverrides)
	r.Post("/recalculate", s.handleRecalculate)
	r.Post("/reset", s.handleReset)
	r.Post("/api/form/field", s.handleFieldChange)

	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.handleHistoryList)
		r.Post("/clear", s.handleHistoryClear)
		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.xlsx", s.handleExportXLSX)
		r.Get("/{id}", s.handleHistoryDocument)
	})

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

func main() {
	cfg := config.Load(config.NewLogger("info", true, os.Stderr))
	log := config.NewLogger(cfg.LogLevel, cfg.IsDev(), os.Stderr)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	hist := history.NewLog(history.NewSQLiteStore(database), log)
	hist.Load(ctx)

	var writer narrative.Writer = narrative.Disabled{}
	if cfg.GeminiAPIKey != "" {
		gw, err := narrative.NewGeminiWriter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return fmt.Errorf("create narrative writer: %w", err)
		}
		writer = gw
	}

	svc := analysis.NewService(cat, writer, hist, cfg.NarrativeTimeout, log)
	sessions := newSessionStore(cfg.SessionSecret)
	srv, err := newServer(cat, svc, hist, sessions, log)
	if err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.prune(); n > 0 {
					log.Debug().Int("sessions", n).Msg("pruned idle sessions")
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Int("history", hist.Len()).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
