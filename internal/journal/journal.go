// Package journal records completed schema analyses in a relational store.
//
// The journal is an operational audit trail: which blobs were analyzed,
// when, and with how many columns. It is optional; when no backend is
// configured the service runs with the Nop store.
package journal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Entry is one recorded analysis.
type Entry struct {
	ConversationID string
	BlobName       string
	ColumnsCount   int
	AnalyzedAt     time.Time
}

// Store persists analysis entries.
//
// Edge cases:
//   - Append is fire-and-forget from the caller's perspective; analyzers log
//     journal failures but never fail a request over them.
//   - Recent returns entries newest-first, at most limit.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Config selects and configures a journal backend.
type Config struct {
	Kind string
	DSN  string
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "sqlite", "postgres").
// Called from init() in backend packages; duplicate registration panics to
// fail fast on ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("journal: Register called with empty kind")
	}
	if f == nil {
		panic("journal: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("journal: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Store using the registered backend factory. An empty
// Kind yields the Nop store, so callers need no special casing for the
// journal-less configuration.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return Nop{}, nil
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported journal kind=%q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Nop is the journal used when no backend is configured.
type Nop struct{}

func (Nop) Append(ctx context.Context, e Entry) error              { return nil }
func (Nop) Recent(ctx context.Context, limit int) ([]Entry, error) { return nil, nil }
func (Nop) Close() error                                           { return nil }
