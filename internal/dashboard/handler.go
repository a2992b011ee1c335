package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/linkstash/linkstash/internal/store"
)

// Handler turns store mutations into dashboard broadcasts.
//
// It implements store.Outbox so it can sit directly on the store's
// publish path, and chains to an optional next consumer (typically the
// syncer) so one publish fans into both a broadcast and a sync trigger.
type Handler struct {
	server *Server
	next   store.Outbox
	logger *log.Logger

	// Statistics tracking. Publish runs on arbitrary store-caller
	// goroutines, so all counter state lives under mu. When source is
	// set, broadcasts recompute from it instead of the incremental
	// counters; otherwise platforms maps post IDs to their last known
	// platform, because delete mutations carry only the ID.
	mu        sync.Mutex
	stats     StatsData
	platforms map[string]string
	source    func() StatsData
}

// NewHandler creates an event handler connected to a dashboard server.
// next may be nil when no further consumer should see the mutations.
func NewHandler(server *Server, next store.Outbox, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		next:   next,
		logger: logger,
		stats: StatsData{
			ByPlatform: make(map[string]int),
		},
		platforms: make(map[string]string),
	}
}

// Publish implements store.Outbox.
func (h *Handler) Publish(m store.Mutation) {
	h.broadcastMutation(m)
	if h.next != nil {
		h.next.Publish(m)
	}
}

// broadcastMutation formats a mutation as a post_update message.
func (h *Handler) broadcastMutation(m store.Mutation) {
	data := PostUpdateData{
		PostID: m.Post.ID,
		Action: string(m.Action),
	}
	if m.Action != store.ActionDelete {
		data.URL = m.Post.URL
		data.Platform = string(m.Post.Platform)
		data.Title = m.Post.Title
		data.Tags = m.Post.Tags
	}

	h.applyMutation(m)

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal post data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypePostUpdate,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	h.broadcastStats()
}

// applyMutation keeps the incremental counters aligned with the store.
func (h *Handler) applyMutation(m store.Mutation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// With a stats source the counters are recomputed on broadcast.
	if h.source != nil {
		return
	}

	platform := string(m.Post.Platform)
	switch m.Action {
	case store.ActionAdd:
		h.stats.Total++
		h.stats.ByPlatform[platform]++
		h.platforms[m.Post.ID] = platform
	case store.ActionUpdate:
		if old, ok := h.platforms[m.Post.ID]; ok && old != platform {
			h.decrementPlatform(old)
			h.stats.ByPlatform[platform]++
		}
		h.platforms[m.Post.ID] = platform
	case store.ActionDelete:
		if h.stats.Total > 0 {
			h.stats.Total--
		}
		if old, ok := h.platforms[m.Post.ID]; ok {
			h.decrementPlatform(old)
			delete(h.platforms, m.Post.ID)
		}
	}
}

// decrementPlatform lowers a platform counter, dropping it at zero.
// Callers must hold h.mu.
func (h *Handler) decrementPlatform(name string) {
	if h.stats.ByPlatform[name] <= 1 {
		delete(h.stats.ByPlatform, name)
		return
	}
	h.stats.ByPlatform[name]--
}

// OnSyncComplete broadcasts the result of a finished sync cycle.
func (h *Handler) OnSyncComplete(pulled, pushed int, duration time.Duration) {
	data := SyncCompleteData{
		Pulled:   pulled,
		Pushed:   pushed,
		Duration: duration,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal sync data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// SetStats replaces the tracked statistics (used on startup to seed the
// counters from the store) and broadcasts them.
func (h *Handler) SetStats(stats StatsData) {
	if stats.ByPlatform == nil {
		stats.ByPlatform = make(map[string]int)
	}
	h.mu.Lock()
	h.stats = stats
	h.mu.Unlock()
	h.broadcastStats()
}

// SetStatsSource installs a function that recomputes the statistics from
// the authoritative store. Every stats broadcast then reflects a fresh
// recomputation, so counters can never drift from the store. The source
// is consulted immediately and the result broadcast.
func (h *Handler) SetStatsSource(fn func() StatsData) {
	h.mu.Lock()
	h.source = fn
	h.mu.Unlock()
	h.broadcastStats()
}

// broadcastStats sends the current statistics to all clients.
func (h *Handler) broadcastStats() {
	h.mu.Lock()
	if h.source != nil {
		stats := h.source()
		if stats.ByPlatform == nil {
			stats.ByPlatform = make(map[string]int)
		}
		h.stats = stats
	}
	snapshot := h.stats
	snapshot.ByPlatform = make(map[string]int, len(h.stats.ByPlatform))
	for k, v := range h.stats.ByPlatform {
		snapshot.ByPlatform[k] = v
	}
	h.mu.Unlock()

	dataJSON, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
