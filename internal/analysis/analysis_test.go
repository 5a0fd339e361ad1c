package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
	"github.com/Simplici0/plmcost/internal/history"
	"github.com/Simplici0/plmcost/internal/narrative"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Read(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Update(_ context.Context, key string, fn history.UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	next, err := fn(v, ok)
	if err != nil {
		return err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = next
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeWriter struct {
	prose   narrative.Prose
	err     error
	release chan struct{}
	started chan struct{}
	got     narrative.Request
}

func (f *fakeWriter) Write(ctx context.Context, req narrative.Request) (narrative.Prose, error) {
	f.got = req
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return narrative.Prose{}, ctx.Err()
		}
	}
	return f.prose, f.err
}

func sampleProse() narrative.Prose {
	return narrative.Prose{
		Summary:              "summary",
		Explanations:         [4]string{"a", "b", "c", "d"},
		MethodologyNotes:     "notes",
		ChartInterpretations: costing.ChartInterpretations{Bar: "bar", Pie: "pie", Radar: "radar"},
	}
}

func validForm(t *testing.T) form.State {
	t.Helper()
	cat := catalog.MustLoad()
	s := form.ApplyFieldChange(cat, form.Default(), form.FieldIndustryInput, "Shipbuilding")
	s = form.ApplyFieldChange(cat, s, form.FieldCompanyName, "Acme")
	return form.ApplyFieldChange(cat, s, form.FieldInfoLocation, string(costing.PersonalPC))
}

func newService(w narrative.Writer, timeout time.Duration) (*Service, *history.Log) {
	log := history.NewLog(&memStore{}, zerolog.Nop())
	return NewService(catalog.MustLoad(), w, log, timeout, zerolog.Nop()), log
}

func TestRun_DecoratesAndRecordsHistory(t *testing.T) {
	w := &fakeWriter{prose: sampleProse()}
	svc, log := newService(w, time.Second)

	out, err := svc.Run(context.Background(), "session-1", Request{Form: validForm(t)})
	require.NoError(t, err)

	r := out.Entry.Result
	assert.Equal(t, int64(578461), r.TotalCost)
	assert.Equal(t, "summary", r.Summary)
	assert.Equal(t, "d", r.CostBreakdown[3].Explanation)
	assert.Equal(t, costing.NoOverrides, out.Methodology.State)
	assert.Equal(t, catalog.FallbackIndustry, out.Metrics.Industry)
	assert.NotEmpty(t, out.Entry.ID)

	assert.Equal(t, "Shipbuilding", w.got.IndustryName)
	assert.Equal(t, int64(578461), w.got.Result.TotalCost)
	assert.Empty(t, w.got.Result.Summary, "writer sees the undecorated result")

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, out.Entry, entries[0])
}

func TestRun_AppliesOverrides(t *testing.T) {
	svc, _ := newService(&fakeWriter{prose: sampleProse()}, 0)
	f := validForm(t)
	f.InfoLocation = costing.Corporate

	out, err := svc.Run(context.Background(), "s", Request{
		Form:      f,
		Overrides: costing.Overrides{costing.AverageEngineerSalary: 100000},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(38462), out.Entry.Result.CostBreakdown[0].Cost)
	assert.True(t, out.Entry.Result.CostBreakdown[0].IsMetricOverridden)
	assert.Equal(t, costing.PartiallyOverridden, out.Methodology.State)
	assert.Equal(t, costing.Overrides{costing.AverageEngineerSalary: 100000}, out.Entry.Overrides)
}

func TestRun_ValidationErrorSkipsPipeline(t *testing.T) {
	w := &fakeWriter{prose: sampleProse()}
	svc, log := newService(w, time.Second)

	_, err := svc.Run(context.Background(), "s", Request{Form: form.Default()})

	var verr *form.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, w.got.IndustryName, "writer not called")
	assert.Zero(t, log.Len())
}

func TestRun_NarrativeFailureDiscardsResult(t *testing.T) {
	boom := errors.New("model unavailable")
	svc, log := newService(&fakeWriter{err: boom}, time.Second)

	out, err := svc.Run(context.Background(), "s", Request{Form: validForm(t)})

	require.ErrorIs(t, err, ErrNarrativeFailed)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Outcome{}, out)
	assert.Zero(t, log.Len())
}

func TestRun_TimeoutBoundsNarrative(t *testing.T) {
	w := &fakeWriter{prose: sampleProse(), release: make(chan struct{})}
	svc, _ := newService(w, 20*time.Millisecond)

	_, err := svc.Run(context.Background(), "s", Request{Form: validForm(t)})

	require.ErrorIs(t, err, ErrNarrativeFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_OneInFlightPerSession(t *testing.T) {
	w := &fakeWriter{prose: sampleProse(), release: make(chan struct{}), started: make(chan struct{})}
	svc, log := newService(w, 0)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), "busy", Request{Form: validForm(t)})
		done <- err
	}()
	<-w.started

	_, err := svc.Run(context.Background(), "busy", Request{Form: validForm(t)})
	require.ErrorIs(t, err, ErrInFlight)

	other, err := svc.Preview(Request{Form: validForm(t)})
	require.NoError(t, err)
	assert.Equal(t, int64(578461), other.Entry.Result.TotalCost)

	close(w.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, log.Len())

	w.started, w.release = nil, nil
	_, err = svc.Run(context.Background(), "busy", Request{Form: validForm(t)})
	require.NoError(t, err, "guard is released after completion")
}

func TestPreview_DoesNotTouchHistory(t *testing.T) {
	svc, log := newService(narrative.Disabled{}, 0)

	out, err := svc.Preview(Request{Form: validForm(t)})
	require.NoError(t, err)

	assert.Empty(t, out.Entry.ID)
	assert.Empty(t, out.Entry.Result.Summary)
	assert.Equal(t, "United States (USD)", out.Entry.Country.Name)
	assert.Zero(t, log.Len())
}
