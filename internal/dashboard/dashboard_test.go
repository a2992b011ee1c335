package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/store"
)

// startTestServer starts a server on a random port.
func startTestServer(t *testing.T) *Server {
	t.Helper()

	server := NewServer(&Config{
		Port:   0, // random available port
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })

	time.Sleep(50 * time.Millisecond)
	return server
}

// dialTestClient connects a WebSocket client and consumes the welcome
// message.
func dialTestClient(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket.Dial() failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read welcome message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal welcome message: %v", err)
	}
	if msg.Type != MessageTypeStats {
		t.Fatalf("welcome message type = %s, want %s", msg.Type, MessageTypeStats)
	}
	return conn
}

// readMessage reads and decodes one broadcast message.
func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	return msg
}

// TestServerStartStop tests the lifecycle
func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})

	if err := server.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if server.GetAddr() == "" {
		t.Fatal("GetAddr() is empty after Start")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

// TestBroadcast_ReachesClient tests message delivery
func TestBroadcast_ReachesClient(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialTestClient(t, ctx, server)

	if count := server.ClientCount(); count != 1 {
		t.Errorf("ClientCount() = %d, want 1", count)
	}

	data, _ := json.Marshal(PostUpdateData{PostID: "post-1", Action: "add"})
	server.Broadcast(Message{Type: MessageTypePostUpdate, Data: data})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypePostUpdate {
		t.Errorf("message type = %s, want %s", msg.Type, MessageTypePostUpdate)
	}
	var payload PostUpdateData
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.PostID != "post-1" || payload.Action != "add" {
		t.Errorf("payload = %+v", payload)
	}
}

// TestHandler_PublishBroadcastsAndChains tests the outbox integration
func TestHandler_PublishBroadcastsAndChains(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialTestClient(t, ctx, server)

	var chained []store.Mutation
	next := store.OutboxFunc(func(m store.Mutation) {
		chained = append(chained, m)
	})
	handler := NewHandler(server, next, log.New(io.Discard, "", 0))

	post := &schema.Post{
		ID:       "post-1",
		URL:      "https://x.com/u/status/1",
		Platform: schema.PlatformTwitter,
		Tags:     []string{"go"},
	}
	handler.Publish(store.Mutation{Action: store.ActionAdd, Post: post})

	// One post_update followed by a stats refresh.
	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypePostUpdate {
		t.Fatalf("first message type = %s, want %s", msg.Type, MessageTypePostUpdate)
	}
	var update PostUpdateData
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if update.PostID != "post-1" || update.Platform != "twitter" {
		t.Errorf("payload = %+v", update)
	}

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeStats {
		t.Fatalf("second message type = %s, want %s", msg.Type, MessageTypeStats)
	}
	var stats StatsData
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("failed to unmarshal stats: %v", err)
	}
	if stats.Total != 1 || stats.ByPlatform["twitter"] != 1 {
		t.Errorf("stats = %+v, want total=1 twitter=1", stats)
	}

	// The mutation continued down the chain.
	if len(chained) != 1 || chained[0].Post.ID != "post-1" {
		t.Errorf("chained mutations = %v, want one for post-1", chained)
	}
}

// TestHandler_DeleteOmitsDetails tests the delete message shape
func TestHandler_DeleteOmitsDetails(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialTestClient(t, ctx, server)

	handler := NewHandler(server, nil, log.New(io.Discard, "", 0))
	handler.Publish(store.Mutation{
		Action: store.ActionDelete,
		Post:   &schema.Post{ID: "post-1"},
	})

	msg := readMessage(t, ctx, conn)
	var update PostUpdateData
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if update.Action != "delete" || update.URL != "" || len(update.Tags) != 0 {
		t.Errorf("delete payload = %+v, want only id and action", update)
	}
}

// readStats reads a post_update/stats broadcast pair and returns the stats.
func readStats(t *testing.T, ctx context.Context, conn *websocket.Conn) StatsData {
	t.Helper()

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypePostUpdate {
		t.Fatalf("first message type = %s, want %s", msg.Type, MessageTypePostUpdate)
	}
	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeStats {
		t.Fatalf("second message type = %s, want %s", msg.Type, MessageTypeStats)
	}
	var stats StatsData
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("failed to unmarshal stats: %v", err)
	}
	return stats
}

// TestHandler_StatsFollowUpdatesAndDeletes tests that the platform
// counters track platform changes and deletions
func TestHandler_StatsFollowUpdatesAndDeletes(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialTestClient(t, ctx, server)

	handler := NewHandler(server, nil, log.New(io.Discard, "", 0))

	post := &schema.Post{
		ID:       "post-1",
		URL:      "https://x.com/u/status/1",
		Platform: schema.PlatformTwitter,
	}
	handler.Publish(store.Mutation{Action: store.ActionAdd, Post: post})

	stats := readStats(t, ctx, conn)
	if stats.Total != 1 || stats.ByPlatform["twitter"] != 1 {
		t.Errorf("stats after add = %+v, want total=1 twitter=1", stats)
	}

	// Changing the platform moves the count, it does not duplicate it.
	moved := &schema.Post{
		ID:       "post-1",
		URL:      "https://youtube.com/watch?v=1",
		Platform: schema.PlatformYouTube,
	}
	handler.Publish(store.Mutation{Action: store.ActionUpdate, Post: moved})

	stats = readStats(t, ctx, conn)
	if stats.Total != 1 || stats.ByPlatform["youtube"] != 1 {
		t.Errorf("stats after update = %+v, want total=1 youtube=1", stats)
	}
	if _, ok := stats.ByPlatform["twitter"]; ok {
		t.Errorf("stats after update = %+v, twitter counter lingered", stats)
	}

	handler.Publish(store.Mutation{
		Action: store.ActionDelete,
		Post:   &schema.Post{ID: "post-1"},
	})

	stats = readStats(t, ctx, conn)
	if stats.Total != 0 {
		t.Errorf("Total after delete = %d, want 0", stats.Total)
	}
	if _, ok := stats.ByPlatform["youtube"]; ok {
		t.Errorf("stats after delete = %+v, youtube counter lingered", stats)
	}
}

// TestHandler_StatsSource tests that an installed source is authoritative
func TestHandler_StatsSource(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialTestClient(t, ctx, server)

	handler := NewHandler(server, nil, log.New(io.Discard, "", 0))
	handler.SetStatsSource(func() StatsData {
		return StatsData{Total: 7, ByPlatform: map[string]int{"website": 7}, TagCount: 3}
	})

	// SetStatsSource broadcasts the recomputed stats immediately.
	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeStats {
		t.Fatalf("message type = %s, want %s", msg.Type, MessageTypeStats)
	}

	handler.Publish(store.Mutation{
		Action: store.ActionDelete,
		Post:   &schema.Post{ID: "post-1"},
	})

	stats := readStats(t, ctx, conn)
	if stats.Total != 7 || stats.ByPlatform["website"] != 7 || stats.TagCount != 3 {
		t.Errorf("stats = %+v, want the source's values", stats)
	}
}

// TestOnSyncComplete tests the sync event broadcast
func TestOnSyncComplete(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialTestClient(t, ctx, server)

	handler := NewHandler(server, nil, log.New(io.Discard, "", 0))
	handler.OnSyncComplete(3, 2, 150*time.Millisecond)

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Fatalf("message type = %s, want %s", msg.Type, MessageTypeSyncComplete)
	}
	var payload SyncCompleteData
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.Pulled != 3 || payload.Pushed != 2 {
		t.Errorf("payload = %+v, want pulled=3 pushed=2", payload)
	}
}
