// Package analysis runs one estimate end to end: validation, metric
// resolution, calculation, narrative and history.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
	"github.com/Simplici0/plmcost/internal/history"
	"github.com/Simplici0/plmcost/internal/narrative"
)

var (
	// ErrInFlight is returned when the session already has a run in progress.
	ErrInFlight = errors.New("an analysis is already running for this session")
	// ErrNarrativeFailed wraps any narrative error. No result is produced.
	ErrNarrativeFailed = errors.New("failed to get a valid analysis from the AI model")
)

// Request is one submit or recalculate.
type Request struct {
	Form      form.State
	Overrides costing.Overrides
}

// Outcome is a completed run.
type Outcome struct {
	Entry       history.Entry
	Metrics     costing.ResolvedMetrics
	Methodology costing.Methodology
}

type Service struct {
	cat     *catalog.Catalog
	writer  narrative.Writer
	history *history.Log
	timeout time.Duration
	log     zerolog.Logger

	inflight sync.Map
}

// NewService wires the pipeline. A zero timeout leaves the narrative call
// bounded only by the caller's context.
func NewService(cat *catalog.Catalog, writer narrative.Writer, hist *history.Log, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		cat:     cat,
		writer:  writer,
		history: hist,
		timeout: timeout,
		log:     log,
	}
}

// Preview validates and calculates without the narrative or history.
func (s *Service) Preview(req Request) (Outcome, error) {
	_, out, err := s.calculate(req)
	return out, err
}

// Run executes the whole pipeline for the session identified by key and
// appends the result to the history. Only one run per key may be active.
func (s *Service) Run(ctx context.Context, key string, req Request) (Outcome, error) {
	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		return Outcome{}, ErrInFlight
	}
	defer s.inflight.Delete(key)

	nreq, out, err := s.calculate(req)
	if err != nil {
		return Outcome{}, err
	}

	wctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	prose, err := s.writer.Write(wctx, nreq)
	if err != nil {
		s.log.Error().Err(err).
			Str("industry", out.Metrics.Industry).
			Dur("elapsed", time.Since(start)).
			Msg("narrative generation failed")
		return Outcome{}, fmt.Errorf("%w: %w", ErrNarrativeFailed, err)
	}

	result := narrative.Decorate(out.Entry.Result, prose)
	out.Entry = history.NewEntry(req.Form, result, nreq.Country, out.Metrics.Overrides)
	s.history.Append(ctx, out.Entry)

	s.log.Info().
		Str("id", out.Entry.ID).
		Str("industry", out.Metrics.Industry).
		Str("currency", string(out.Metrics.Currency)).
		Int64("total_cost", result.TotalCost).
		Stringer("overrides", out.Metrics.Overrides.State()).
		Dur("elapsed", time.Since(start)).
		Msg("analysis completed")

	return out, nil
}

func (s *Service) calculate(req Request) (narrative.Request, Outcome, error) {
	in, err := req.Form.Validate(s.cat)
	if err != nil {
		return narrative.Request{}, Outcome{}, err
	}

	m, result, err := costing.Estimate(s.cat, in, req.Overrides)
	if err != nil {
		return narrative.Request{}, Outcome{}, fmt.Errorf("estimate: %w", err)
	}
	country, _ := s.cat.Country(in.Currency)

	out := Outcome{
		Entry: history.Entry{
			FormData:  req.Form,
			Result:    result,
			Country:   country,
			Overrides: m.Overrides,
		},
		Metrics:     m,
		Methodology: costing.NewMethodology(m, country),
	}
	return narrative.NewRequest(s.cat, req.Form, country, result), out, nil
}
