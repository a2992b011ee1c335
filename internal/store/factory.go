package store

import (
	"fmt"
	"log"
	"os"
)

// Factory selects and opens a storage backend for a data directory.
//
// The factory probes the preferred backend first and falls back to the
// flatfile backend when the preferred one cannot be opened. Selection
// happens once at startup; the resulting Backend is handed to the Store.
type Factory struct {
	// preferredKind is tried first (default: sqlite)
	preferredKind Kind

	// fallbackKind is used when the preferred backend fails to open
	fallbackKind Kind

	// logger records fallback decisions
	logger *log.Logger
}

// NewFactory creates a backend factory with the specified options.
//
// Default behavior:
//   - Prefer the sqlite backend
//   - Fall back to the flatfile backend if sqlite is unavailable
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		preferredKind: KindSQLite,
		fallbackKind:  KindFlatfile,
		logger:        log.New(os.Stderr, "[store] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FactoryOption configures the factory
type FactoryOption func(*Factory)

// WithPreferredKind sets the backend kind to try first.
func WithPreferredKind(k Kind) FactoryOption {
	return func(f *Factory) {
		f.preferredKind = k
	}
}

// WithFallbackKind sets the backend kind used when the preferred fails.
func WithFallbackKind(k Kind) FactoryOption {
	return func(f *Factory) {
		f.fallbackKind = k
	}
}

// WithFactoryLogger sets the logger used for fallback decisions.
func WithFactoryLogger(logger *log.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// Open creates a backend for the given data directory.
//
// The factory will:
//  1. Look up the preferred constructor in the registry
//  2. Attempt to open it
//  3. On any failure, log and open the fallback backend instead
//
// An error is returned only when the fallback itself cannot be opened;
// callers can treat a successful return as "the store will work", even
// if degraded to the flatfile backend.
func (f *Factory) Open(dataDir string) (Backend, error) {
	if constructor := getConstructor(f.preferredKind); constructor != nil {
		backend, err := constructor(dataDir)
		if err == nil {
			return backend, nil
		}
		f.logger.Printf("WARNING: %s backend unavailable (%v), falling back to %s", f.preferredKind, err, f.fallbackKind)
	} else {
		f.logger.Printf("WARNING: no %s backend registered, falling back to %s", f.preferredKind, f.fallbackKind)
	}

	constructor := getConstructor(f.fallbackKind)
	if constructor == nil {
		return nil, fmt.Errorf("no registered constructor for backend kind: %s (available: %v)", f.fallbackKind, RegisteredKinds())
	}

	backend, err := constructor(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback %s backend: %w", f.fallbackKind, err)
	}
	return backend, nil
}
