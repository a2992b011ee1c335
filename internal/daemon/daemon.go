// Package daemon provides the background worker that keeps the local
// store synchronized with the remote.
//
// The daemon:
//  1. Watches the local data file for changes made by other processes
//  2. Probes connectivity and drives the syncer's Offline/Online state
//  3. Triggers sync cycles on file changes (debounced) and on
//     offline-to-online transitions
//  4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	stdsync "sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/linkstash/linkstash/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// ProbeInterval is how often connectivity is re-checked
	ProbeInterval time.Duration

	// DebounceInterval is how long to wait before reacting to file
	// changes; this batches rapid updates together
	DebounceInterval time.Duration

	// Probe reports whether the remote is reachable. Defaults to
	// always-online when nil (local-only setups).
	Probe func(ctx context.Context) bool

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ProbeInterval:    30 * time.Second,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates file watching, connectivity probing, and sync
// triggering.
type Daemon struct {
	syncer    sync.Syncer
	watchPath string
	config    *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> timestamp
	changeQueueMu stdsync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// New creates a new Daemon instance.
//
// watchPath is the local data file (sqlite database or flatfile
// document); changes to it from other processes trigger a sync cycle.
//
// Use Start() to begin watching and syncing.
func New(syncer sync.Syncer, watchPath string) (*Daemon, error) {
	return NewWithConfig(syncer, watchPath, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(syncer sync.Syncer, watchPath string, config *Config) (*Daemon, error) {
	if syncer == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if watchPath == "" {
		return nil, fmt.Errorf("watchPath cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		syncer:      syncer,
		watchPath:   watchPath,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
//  1. Probe connectivity once and run an initial sync cycle if online
//  2. Watch the data file's directory for changes
//  3. Periodically re-probe connectivity
//  4. Process file changes with debouncing
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	d.probeOnce(ctx)
	if d.syncer.Online() {
		if err := d.syncer.Sync(ctx); err != nil {
			d.config.Logger.Printf("WARNING: initial sync failed: %v", err)
		}
	}

	// Watch the parent directory: atomic rename-based writes replace
	// the file, so watching the file itself would lose the watch.
	watchDir := filepath.Dir(d.watchPath)
	if err := d.watcher.Add(watchDir); err != nil {
		return fmt.Errorf("failed to watch data directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.watchPath)

	// Start background goroutines
	d.wg.Add(4)
	go d.runSyncer()
	go d.watchFileEvents()
	go d.processChangeQueue()
	go d.probeConnectivity()

	// Wait for shutdown
	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	// Signal shutdown
	d.cancel()

	// Close watcher
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	// Wait for goroutines to finish
	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// runSyncer hosts the syncer's trigger-consuming worker loop.
func (d *Daemon) runSyncer() {
	defer d.wg.Done()
	d.syncer.Run(d.ctx)
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about Create, Write, Rename on the data file
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.watchPath) {
				continue
			}

			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue processes queued file changes with debouncing.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges triggers a sync for files quiet for long enough.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	now := time.Now()
	triggered := false
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		delete(d.changeQueue, path)
		triggered = true
	}
	d.changeQueueMu.Unlock()

	if !triggered {
		return
	}

	d.config.Logger.Printf("Data file changed, syncing")
	if err := d.syncer.Sync(d.ctx); err != nil {
		d.config.Logger.Printf("WARNING: sync after file change failed: %v", err)
	}
}

// probeConnectivity periodically re-checks whether the remote is
// reachable and updates the syncer's online state.
func (d *Daemon) probeConnectivity() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.probeOnce(d.ctx)
		}
	}
}

// probeOnce runs one connectivity check.
func (d *Daemon) probeOnce(ctx context.Context) {
	if d.config.Probe == nil {
		d.syncer.SetOnline(true)
		return
	}
	d.syncer.SetOnline(d.config.Probe(ctx))
}
