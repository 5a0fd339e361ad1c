// Package history keeps the bounded log of past analyses, newest first.
package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
)

const (
	// StorageKey is the key the whole log is stored under.
	StorageKey = "plmCalculatorHistory"
	// MaxEntries bounds the log; older entries are dropped.
	MaxEntries = 10
)

// Entry is one completed analysis as it was shown to the user.
type Entry struct {
	ID        string            `json:"id"`
	FormData  form.State        `json:"formData"`
	Result    costing.Result    `json:"result"`
	Country   catalog.Country   `json:"country"`
	Overrides costing.Overrides `json:"metricOverrides,omitempty"`
}

// NewEntry stamps a new entry with a time-ordered id.
func NewEntry(s form.State, result costing.Result, country catalog.Country, overrides costing.Overrides) Entry {
	e := Entry{
		ID:       ulid.Make().String(),
		FormData: s,
		Result:   result,
		Country:  country,
	}
	if overrides.Count() > 0 {
		e.Overrides = overrides.Clone()
	}
	return e
}

// CreatedAt is the time encoded in the entry id, or zero for a foreign id.
func (e Entry) CreatedAt() time.Time {
	id, err := ulid.Parse(e.ID)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(id.Time()).UTC()
}

// Log is the in-memory view of the persisted history. Storage failures are
// logged and never surface to callers.
type Log struct {
	store Store
	log   zerolog.Logger

	mu      sync.RWMutex
	entries []Entry
}

func NewLog(store Store, log zerolog.Logger) *Log {
	return &Log{store: store, log: log}
}

// Load replaces the in-memory log with the persisted one. A missing or
// corrupt value yields an empty log; a storage failure keeps the current
// one.
func (l *Log) Load(ctx context.Context) {
	data, ok, err := l.store.Read(ctx, StorageKey)
	if err != nil {
		l.log.Warn().Err(err).Msg("load history")
		return
	}
	entries := l.decode(data, ok)

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

func (l *Log) decode(data []byte, ok bool) []Entry {
	if !ok {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.log.Warn().Err(err).Msg("decode history, starting empty")
		return nil
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries
}

func prepend(e Entry, entries []Entry) []Entry {
	next := make([]Entry, 0, MaxEntries)
	next = append(next, e)
	next = append(next, entries...)
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	return next
}

// Append puts e at the front of the persisted log, drops anything past
// MaxEntries and returns the new log. Entries written by other processes
// since the last Load are kept. When the store fails, e is added to the
// in-memory log only.
func (l *Log) Append(ctx context.Context, e Entry) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var next []Entry
	err := l.store.Update(ctx, StorageKey, func(current []byte, ok bool) ([]byte, error) {
		next = prepend(e, l.decode(current, ok))
		return json.Marshal(next)
	})
	if err != nil {
		l.log.Warn().Err(err).Msg("persist history")
		next = prepend(e, l.entries)
	}

	l.entries = next
	return cloneEntries(next)
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneEntries(l.entries)
}

// Get finds an entry by id.
func (l *Log) Get(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len reports the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear empties the log and removes the persisted value.
func (l *Log) Clear(ctx context.Context) {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()

	if err := l.store.Delete(ctx, StorageKey); err != nil {
		l.log.Warn().Err(err).Msg("clear history")
	}
}

func cloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return []Entry{}
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
