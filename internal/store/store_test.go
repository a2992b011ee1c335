package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linkstash/linkstash/internal/schema"
)

// fakeBackend is an in-memory Backend for exercising the Store facade.
type fakeBackend struct {
	mu       sync.Mutex
	posts    map[string]*schema.Post
	order    []string
	settings map[string]any

	listErr error // injected failure for ListPosts/ListTags
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		posts:    make(map[string]*schema.Post),
		settings: make(map[string]any),
	}
}

func (f *fakeBackend) Kind() Kind { return "fake" }

func (f *fakeBackend) AddPost(ctx context.Context, post *schema.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[post.ID]; ok {
		return fmt.Errorf("post %s already exists", post.ID)
	}
	f.posts[post.ID] = post.Clone()
	f.order = append(f.order, post.ID)
	return nil
}

func (f *fakeBackend) GetPost(ctx context.Context, id string) (*schema.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return post.Clone(), nil
}

func (f *fakeBackend) UpdatePost(ctx context.Context, post *schema.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[post.ID]; !ok {
		return ErrNotFound
	}
	f.posts[post.ID] = post.Clone()
	return nil
}

func (f *fakeBackend) DeletePost(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakeBackend) ListPosts(ctx context.Context) ([]*schema.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var posts []*schema.Post
	for _, id := range f.order {
		if post, ok := f.posts[id]; ok {
			posts = append(posts, post.Clone())
		}
	}
	return posts, nil
}

func (f *fakeBackend) ListTags(ctx context.Context) ([]*schema.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	counts := make(map[string]int)
	var names []string
	for _, post := range f.posts {
		for _, tag := range post.Tags {
			if counts[tag] == 0 {
				names = append(names, tag)
			}
			counts[tag]++
		}
	}
	var tags []*schema.Tag
	for _, name := range names {
		tags = append(tags, &schema.Tag{Name: name, Count: counts[name]})
	}
	return tags, nil
}

func (f *fakeBackend) PutSetting(ctx context.Context, key string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = value
	return nil
}

func (f *fakeBackend) GetSetting(ctx context.Context, key string) (any, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.settings[key]
	return value, ok, nil
}

func (f *fakeBackend) Close() error { return nil }

// recordingOutbox captures published mutations.
type recordingOutbox struct {
	mu        sync.Mutex
	mutations []Mutation
}

func (r *recordingOutbox) Publish(m Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, m)
}

func (r *recordingOutbox) all() []Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mutation(nil), r.mutations...)
}

// readyStore returns an initialized store over a fake backend.
func readyStore(t *testing.T, opts ...Option) (*Store, *fakeBackend) {
	t.Helper()

	backend := newFakeBackend()
	opts = append(opts, WithBackend(backend))
	st := New(t.TempDir(), opts...)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	return st, backend
}

// TestAddPost_GeneratesDefaults tests ID, platform, and timestamp defaulting
func TestAddPost_GeneratesDefaults(t *testing.T) {
	st, _ := readyStore(t)
	ctx := context.Background()

	stored, err := st.AddPost(ctx, &schema.Post{URL: "https://x.com/u/status/1"}, false)
	if err != nil {
		t.Fatalf("AddPost() failed: %v", err)
	}
	if stored.ID == "" {
		t.Error("stored post has no ID")
	}
	if stored.Platform != schema.PlatformTwitter {
		t.Errorf("Platform = %q, want twitter", stored.Platform)
	}
	if stored.DateAdded.IsZero() || stored.UpdatedAt.IsZero() {
		t.Error("timestamps not defaulted")
	}
}

// TestAddPost_Invalid tests rejection of unusable posts
func TestAddPost_Invalid(t *testing.T) {
	st, _ := readyStore(t)

	if _, err := st.AddPost(context.Background(), &schema.Post{}, false); err == nil {
		t.Error("AddPost() with no URL succeeded, want error")
	}
}

// TestUpdatePost_RefreshesUpdatedAt tests the LWW timestamp refresh
func TestUpdatePost_RefreshesUpdatedAt(t *testing.T) {
	st, _ := readyStore(t)
	ctx := context.Background()

	stored, err := st.AddPost(ctx, &schema.Post{URL: "https://a.example"}, false)
	if err != nil {
		t.Fatalf("AddPost() failed: %v", err)
	}
	before := stored.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	stored.Title = "renamed"
	updated, err := st.UpdatePost(ctx, stored, false)
	if err != nil {
		t.Fatalf("UpdatePost() failed: %v", err)
	}
	if !updated.UpdatedAt.After(before) {
		t.Errorf("UpdatedAt = %v, want after %v", updated.UpdatedAt, before)
	}
}

// TestImportPost_PreservesTimestamps tests the reconciliation upsert path
func TestImportPost_PreservesTimestamps(t *testing.T) {
	outbox := &recordingOutbox{}
	st, backend := readyStore(t, WithOutbox(outbox))
	ctx := context.Background()

	added := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := added.Add(time.Hour)
	post := &schema.Post{
		ID:        "post-remote",
		URL:       "https://remote.example",
		Platform:  schema.PlatformWebsite,
		DateAdded: added,
		UpdatedAt: updated,
	}

	// Insert path: the post does not exist locally yet.
	if err := st.ImportPost(ctx, post); err != nil {
		t.Fatalf("ImportPost() failed: %v", err)
	}
	got, err := backend.GetPost(ctx, "post-remote")
	if err != nil {
		t.Fatalf("GetPost() failed: %v", err)
	}
	if !got.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v (unrefreshed)", got.UpdatedAt, updated)
	}

	// Overwrite path: an existing post is replaced wholesale.
	post.Title = "newer remote copy"
	if err := st.ImportPost(ctx, post); err != nil {
		t.Fatalf("ImportPost() overwrite failed: %v", err)
	}
	got, _ = backend.GetPost(ctx, "post-remote")
	if got.Title != "newer remote copy" {
		t.Errorf("Title = %q after overwrite", got.Title)
	}

	// Imports never publish to the outbox.
	if n := len(outbox.all()); n != 0 {
		t.Errorf("outbox received %d mutations from imports, want 0", n)
	}
}

// TestOutbox_PublishSemantics tests the syncRemote gate and action kinds
func TestOutbox_PublishSemantics(t *testing.T) {
	outbox := &recordingOutbox{}
	st, _ := readyStore(t, WithOutbox(outbox))
	ctx := context.Background()

	stored, err := st.AddPost(ctx, &schema.Post{URL: "https://a.example"}, true)
	if err != nil {
		t.Fatalf("AddPost() failed: %v", err)
	}
	if _, err := st.AddPost(ctx, &schema.Post{URL: "https://b.example"}, false); err != nil {
		t.Fatalf("AddPost() failed: %v", err)
	}
	if _, err := st.UpdatePost(ctx, stored, true); err != nil {
		t.Fatalf("UpdatePost() failed: %v", err)
	}
	if err := st.DeletePost(ctx, stored.ID, true); err != nil {
		t.Fatalf("DeletePost() failed: %v", err)
	}

	mutations := outbox.all()
	if len(mutations) != 3 {
		t.Fatalf("outbox received %d mutations, want 3", len(mutations))
	}
	wantActions := []Action{ActionAdd, ActionUpdate, ActionDelete}
	for i, m := range mutations {
		if m.Action != wantActions[i] {
			t.Errorf("mutation[%d].Action = %q, want %q", i, m.Action, wantActions[i])
		}
	}
	if mutations[2].Post.ID != stored.ID {
		t.Errorf("delete mutation carries ID %q, want %q", mutations[2].Post.ID, stored.ID)
	}
}

// TestPreReady_QueuesFIFO tests that early operations block, then drain in order
func TestPreReady_QueuesFIFO(t *testing.T) {
	backend := newFakeBackend()
	st := New(t.TempDir(), WithBackend(backend))
	ctx := context.Background()

	const n = 5
	var wg sync.WaitGroup
	results := make([]*schema.Post, n)

	// Queue operations one at a time so their FIFO positions are fixed.
	for i := 0; i < n; i++ {
		i := i
		want := i + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			post, err := st.AddPost(ctx, &schema.Post{
				URL: fmt.Sprintf("https://example.com/%d", i),
			}, false)
			if err != nil {
				t.Errorf("queued AddPost(%d) failed: %v", i, err)
				return
			}
			results[i] = post
		}()
		waitForPending(t, st, want)
	}

	// Nothing ran yet: the callers are all blocked.
	if got, _ := backend.ListPosts(ctx); len(got) != 0 {
		t.Fatalf("backend has %d posts before Init, want 0", len(got))
	}

	if err := st.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	wg.Wait()

	// The backend saw the adds in queue order.
	posts, _ := backend.ListPosts(ctx)
	if len(posts) != n {
		t.Fatalf("backend has %d posts after Init, want %d", len(posts), n)
	}
	for i, post := range posts {
		want := fmt.Sprintf("https://example.com/%d", i)
		if post.URL != want {
			t.Errorf("drain order: posts[%d].URL = %q, want %q", i, post.URL, want)
		}
	}
	for i, post := range results {
		if post == nil {
			t.Errorf("caller %d never observed its result", i)
		}
	}
}

// waitForPending blocks until the store's queue reaches length n.
func waitForPending(t *testing.T, st *Store, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for st.pendingLen() < n {
		if time.Now().After(deadline) {
			t.Fatalf("pending queue never reached %d (at %d)", n, st.pendingLen())
		}
		time.Sleep(time.Millisecond)
	}
}

// TestInit_Idempotent tests that a second Init is a no-op
func TestInit_Idempotent(t *testing.T) {
	st, _ := readyStore(t)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
}

// TestInit_ConcurrentOpensOneBackend tests that racing Init calls share
// a single backend instead of leaking extra ones
func TestInit_ConcurrentOpensOneBackend(t *testing.T) {
	UnregisterAll()
	t.Cleanup(UnregisterAll)

	var mu sync.Mutex
	opens := 0
	Register("counted", func(string) (Backend, error) {
		mu.Lock()
		opens++
		mu.Unlock()
		return newFakeBackend(), nil
	})

	st := New(t.TempDir(), WithFactory(quietFactory(
		WithPreferredKind("counted"), WithFallbackKind("counted"))))
	t.Cleanup(func() { _ = st.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.Init(context.Background()); err != nil {
				t.Errorf("Init() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if opens != 1 {
		t.Errorf("backend opened %d times, want 1", opens)
	}
}

// TestInit_RecordsDataVersion tests the version bookkeeping
func TestInit_RecordsDataVersion(t *testing.T) {
	st, backend := readyStore(t)
	_ = st

	value, ok, err := backend.GetSetting(context.Background(), dataVersionKey)
	if err != nil {
		t.Fatalf("GetSetting() failed: %v", err)
	}
	if !ok || value != DataVersion {
		t.Errorf("data version = %v, %v, want %q", value, ok, DataVersion)
	}
}

// TestInit_UpgradesOldDataVersion tests the forward bump
func TestInit_UpgradesOldDataVersion(t *testing.T) {
	backend := newFakeBackend()
	if err := backend.PutSetting(context.Background(), dataVersionKey, "v1.0.0"); err != nil {
		t.Fatalf("PutSetting() failed: %v", err)
	}

	st := New(t.TempDir(), WithBackend(backend))
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	value, _, _ := backend.GetSetting(context.Background(), dataVersionKey)
	if value != DataVersion {
		t.Errorf("data version = %v, want %q", value, DataVersion)
	}
}

// TestReads_NeverError tests the log-and-default read policy
func TestReads_NeverError(t *testing.T) {
	st, backend := readyStore(t)
	ctx := context.Background()

	if post := st.GetPostByID(ctx, "post-missing"); post != nil {
		t.Errorf("GetPostByID(missing) = %v, want nil", post)
	}

	backend.listErr = errors.New("disk exploded")
	if posts := st.GetAllPosts(ctx, Query{}); len(posts) != 0 {
		t.Errorf("GetAllPosts() with failing backend = %d posts, want 0", len(posts))
	}
	if tags := st.GetAllTags(ctx); len(tags) != 0 {
		t.Errorf("GetAllTags() with failing backend = %d tags, want 0", len(tags))
	}
}

// TestGetSetting_Default tests defaulting for absent keys
func TestGetSetting_Default(t *testing.T) {
	st, _ := readyStore(t)
	ctx := context.Background()

	if got := st.GetSetting(ctx, "missing", "fallback"); got != "fallback" {
		t.Errorf("GetSetting(missing) = %v, want fallback", got)
	}

	if err := st.SetSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("SetSetting() failed: %v", err)
	}
	if got := st.GetSetting(ctx, "theme", "light"); got != "dark" {
		t.Errorf("GetSetting(theme) = %v, want dark", got)
	}
}

// TestDeletePost_NotFound tests error propagation on writes
func TestDeletePost_NotFound(t *testing.T) {
	st, _ := readyStore(t)

	err := st.DeletePost(context.Background(), "post-missing", false)
	if !IsNotFound(err) {
		t.Errorf("DeletePost() error = %v, want ErrNotFound", err)
	}
}
