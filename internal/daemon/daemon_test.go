package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/linkstash/linkstash/internal/store"
)

// fakeSyncer records calls for daemon tests.
type fakeSyncer struct {
	mu     stdsync.Mutex
	online bool
	syncs  int
}

func (f *fakeSyncer) Publish(m store.Mutation) {}

func (f *fakeSyncer) Sync(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	return nil
}

func (f *fakeSyncer) Run(ctx context.Context) { <-ctx.Done() }

func (f *fakeSyncer) SetOnline(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = online
}

func (f *fakeSyncer) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeSyncer) QueueLen() int { return 0 }

func (f *fakeSyncer) syncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncs
}

// testConfig returns a config tuned for fast tests.
func testConfig() *Config {
	return &Config{
		ProbeInterval:    50 * time.Millisecond,
		DebounceInterval: 20 * time.Millisecond,
		Logger:           log.New(io.Discard, "", 0),
	}
}

// TestNew_Validation tests constructor argument checks
func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, "/tmp/x"); err == nil {
		t.Error("New(nil syncer) succeeded, want error")
	}
	if _, err := New(&fakeSyncer{}, ""); err == nil {
		t.Error("New(empty watchPath) succeeded, want error")
	}
}

// TestStart_InitialProbeAndSync tests the startup sequence
func TestStart_InitialProbeAndSync(t *testing.T) {
	dir := t.TempDir()
	watchPath := filepath.Join(dir, "linkstash.json")
	if err := os.WriteFile(watchPath, []byte("{}"), 0600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	syncer := &fakeSyncer{}
	d, err := NewWithConfig(syncer, watchPath, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	// A nil Probe defaults to online, so the initial sync must run.
	waitFor(t, func() bool { return syncer.Online() && syncer.syncCount() >= 1 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
}

// TestStart_FileChangeTriggersSync tests the watch-debounce-sync path
func TestStart_FileChangeTriggersSync(t *testing.T) {
	dir := t.TempDir()
	watchPath := filepath.Join(dir, "linkstash.json")
	if err := os.WriteFile(watchPath, []byte("{}"), 0600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	syncer := &fakeSyncer{}
	d, err := NewWithConfig(syncer, watchPath, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	waitFor(t, func() bool { return syncer.syncCount() >= 1 })
	before := syncer.syncCount()

	// Simulate another process rewriting the store file atomically.
	tmp := watchPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(`{"posts":[]}`), 0600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := os.Rename(tmp, watchPath); err != nil {
		t.Fatalf("Rename() failed: %v", err)
	}

	waitFor(t, func() bool { return syncer.syncCount() > before })

	cancel()
	<-done
}

// TestStart_IgnoresUnrelatedFiles tests event filtering
func TestStart_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	watchPath := filepath.Join(dir, "linkstash.json")
	if err := os.WriteFile(watchPath, []byte("{}"), 0600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	syncer := &fakeSyncer{}
	d, err := NewWithConfig(syncer, watchPath, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	waitFor(t, func() bool { return syncer.syncCount() >= 1 })
	before := syncer.syncCount()

	// Writes to other files in the directory must not trigger a cycle.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := syncer.syncCount(); got != before {
		t.Errorf("sync count = %d after unrelated write, want %d", got, before)
	}

	cancel()
	<-done
}

// TestProbeURL tests probe construction edge cases
func TestProbeURL(t *testing.T) {
	// An unparseable URL reports offline instead of panicking.
	probe := ProbeURL("://nope")
	if probe(context.Background()) {
		t.Error("probe for invalid URL reported online")
	}

	probe = ProbeURL("")
	if probe(context.Background()) {
		t.Error("probe for empty URL reported online")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never became true")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
