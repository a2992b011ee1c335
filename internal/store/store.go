// Package store implements the local persistence layer for linkstash.
//
// The store owns posts, tag aggregates, and settings, abstracting over two
// interchangeable backends: a transactional SQLite database (primary) and a
// single-document JSON flatfile (fallback). Backend selection happens once,
// at Init, through a registry-backed factory.
//
// Error policy, by design:
//   - Write operations (AddPost, UpdatePost, DeletePost, SetSetting)
//     propagate exactly one error to the caller.
//   - Read operations (GetAllPosts, GetPostByID, GetAllTags, GetSetting)
//     never fail the caller: internal errors are logged and an empty or
//     default result is returned, prioritizing availability.
//
// Operations invoked before Init completes are queued and drained in FIFO
// order once the store is ready; callers block until their deferred call
// finishes and observe no difference from the store being ready immediately.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/linkstash/linkstash/internal/schema"
)

// DataVersion is the current on-disk data format version.
//
// The recorded version lives in the settings collection; Init performs a
// single forward bump when it finds an older version. Downgrades are not
// supported.
const DataVersion = "v2.0.0"

const dataVersionKey = "data_version"

// Store is the local persistence facade over a storage backend.
type Store struct {
	dataDir string
	factory *Factory
	outbox  Outbox
	logger  *log.Logger

	mu       sync.Mutex
	ready    bool
	pending  []func()
	backend  Backend
	initing  bool
	initDone chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithBackend injects an already-open backend, bypassing the factory.
// Primarily useful for tests.
func WithBackend(b Backend) Option {
	return func(s *Store) {
		s.backend = b
	}
}

// WithFactory sets the factory used by Init to open the backend.
func WithFactory(f *Factory) Option {
	return func(s *Store) {
		s.factory = f
	}
}

// WithOutbox sets the consumer that receives mutations after successful
// local commits. Without an outbox, mutations are local-only.
func WithOutbox(o Outbox) Option {
	return func(s *Store) {
		s.outbox = o
	}
}

// WithLogger sets the store's logger. Defaults to stderr.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store rooted at dataDir. Call Init before use; operations
// issued earlier are queued and run once Init finishes.
func New(dataDir string, opts ...Option) *Store {
	s := &Store{
		dataDir: dataDir,
		logger:  log.New(os.Stderr, "[store] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.factory == nil {
		s.factory = NewFactory(WithFactoryLogger(s.logger))
	}
	return s
}

// Init opens the backend (falling back to the flatfile backend when the
// primary is unavailable), bumps the data version if needed, marks the
// store ready, and drains any operations queued in the meantime, in the
// order they arrived.
//
// Init is idempotent; calling it again on a ready store is a no-op, and
// concurrent calls open at most one backend: the first caller does the
// work while the rest wait for its outcome. An error is returned only
// when the fallback backend itself cannot be opened.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	for {
		if s.ready {
			s.mu.Unlock()
			return nil
		}
		if !s.initing {
			break
		}
		done := s.initDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
	}
	s.initing = true
	s.initDone = make(chan struct{})
	backend := s.backend
	s.mu.Unlock()

	if backend == nil {
		var err error
		backend, err = s.factory.Open(s.dataDir)
		if err != nil {
			s.mu.Lock()
			s.initing = false
			close(s.initDone)
			s.mu.Unlock()
			return fmt.Errorf("failed to open storage backend: %w", err)
		}
	}

	if err := s.checkDataVersion(ctx, backend); err != nil {
		s.logger.Printf("WARNING: data version check failed: %v", err)
	}

	s.mu.Lock()
	s.backend = backend
	s.ready = true
	s.initing = false
	pending := s.pending
	s.pending = nil
	close(s.initDone)
	s.mu.Unlock()

	// Drain queued operations strictly FIFO. Each closure re-invokes the
	// original call with its original arguments and unblocks its caller.
	for _, fn := range pending {
		fn()
	}

	return nil
}

// checkDataVersion records the data format version on first open and
// performs the single supported forward bump on older stores.
func (s *Store) checkDataVersion(ctx context.Context, backend Backend) error {
	v, ok, err := backend.GetSetting(ctx, dataVersionKey)
	if err != nil {
		return err
	}
	if ok {
		if stored, isStr := v.(string); isStr && semver.IsValid(stored) {
			if semver.Compare(stored, DataVersion) >= 0 {
				return nil
			}
			s.logger.Printf("Upgrading data version %s -> %s", stored, DataVersion)
		}
	}
	return backend.PutSetting(ctx, dataVersionKey, DataVersion)
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	s.mu.Lock()
	backend := s.backend
	s.backend = nil
	s.ready = false
	s.mu.Unlock()

	if backend == nil {
		return nil
	}
	return backend.Close()
}

// Kind returns the kind of the active backend, or "" before Init.
func (s *Store) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return ""
	}
	return s.backend.Kind()
}

// whenReady runs fn immediately if the store is ready; otherwise it
// queues fn and blocks until Init drains the queue and fn completes.
func (s *Store) whenReady(fn func()) {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		fn()
		return
	}
	done := make(chan struct{})
	s.pending = append(s.pending, func() {
		fn()
		close(done)
	})
	s.mu.Unlock()
	<-done
}

// pendingLen returns the number of queued pre-ready operations.
func (s *Store) pendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// AddPost stores a new post and increments its tags' counts atomically
// with the insert.
//
// A post missing an ID gets a generated one; a zero DateAdded defaults to
// now; UpdatedAt is always set to now. The stored post is returned with
// all generated fields populated.
//
// When syncRemote is true the committed mutation is published to the
// outbox; remote failures never affect the returned error.
func (s *Store) AddPost(ctx context.Context, post *schema.Post, syncRemote bool) (*schema.Post, error) {
	var (
		stored *schema.Post
		err    error
	)
	s.whenReady(func() {
		stored, err = s.addPost(ctx, post, syncRemote)
	})
	return stored, err
}

func (s *Store) addPost(ctx context.Context, post *schema.Post, syncRemote bool) (*schema.Post, error) {
	p := post.Clone()
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid post: %w", err)
	}

	if err := s.backend.AddPost(ctx, p); err != nil {
		return nil, err
	}

	s.publish(Mutation{Action: ActionAdd, Post: p.Clone()}, syncRemote)
	return p, nil
}

// UpdatePost replaces an existing post. UpdatedAt is recomputed; the tag
// difference against the stored post is applied to the tag aggregates in
// the same logical transaction as the post write.
//
// Returns ErrNotFound if no post with the given ID exists.
func (s *Store) UpdatePost(ctx context.Context, post *schema.Post, syncRemote bool) (*schema.Post, error) {
	var (
		stored *schema.Post
		err    error
	)
	s.whenReady(func() {
		stored, err = s.updatePost(ctx, post, syncRemote)
	})
	return stored, err
}

func (s *Store) updatePost(ctx context.Context, post *schema.Post, syncRemote bool) (*schema.Post, error) {
	p := post.Clone()
	p.Tags = schema.NormalizeTags(p.Tags)
	p.UpdatedAt = time.Now().UTC()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid post: %w", err)
	}

	if err := s.backend.UpdatePost(ctx, p); err != nil {
		return nil, err
	}

	s.publish(Mutation{Action: ActionUpdate, Post: p.Clone()}, syncRemote)
	return p, nil
}

// DeletePost removes a post and decrements (deleting at zero) every tag
// it held, atomically with the removal.
//
// Returns ErrNotFound if no post with the given ID exists.
func (s *Store) DeletePost(ctx context.Context, id string, syncRemote bool) error {
	var err error
	s.whenReady(func() {
		err = s.deletePost(ctx, id, syncRemote)
	})
	return err
}

func (s *Store) deletePost(ctx context.Context, id string, syncRemote bool) error {
	if err := s.backend.DeletePost(ctx, id); err != nil {
		return err
	}

	s.publish(Mutation{Action: ActionDelete, Post: &schema.Post{ID: id}}, syncRemote)
	return nil
}

// ImportPost upserts a post preserving its timestamps and without
// publishing to the outbox. Sync reconciliation and migration imports use
// this path: the incoming record is authoritative, so UpdatedAt must not
// be refreshed and no feedback mutation may be queued.
func (s *Store) ImportPost(ctx context.Context, post *schema.Post) error {
	var err error
	s.whenReady(func() {
		err = s.importPost(ctx, post)
	})
	return err
}

func (s *Store) importPost(ctx context.Context, post *schema.Post) error {
	p := post.Clone()
	p.Tags = schema.NormalizeTags(p.Tags)
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}

	err := s.backend.UpdatePost(ctx, p)
	if IsNotFound(err) {
		return s.backend.AddPost(ctx, p)
	}
	return err
}

// GetPostByID returns the post with the given ID, or nil when it does not
// exist. Internal errors are logged, never returned.
func (s *Store) GetPostByID(ctx context.Context, id string) *schema.Post {
	var post *schema.Post
	s.whenReady(func() {
		p, err := s.backend.GetPost(ctx, id)
		if err != nil {
			if !IsNotFound(err) {
				s.logger.Printf("WARNING: get post %s: %v", id, err)
			}
			return
		}
		post = p
	})
	return post
}

// GetAllPosts returns the posts matching the query, filtered, sorted, and
// paginated. On internal failure the result is empty, never an error.
func (s *Store) GetAllPosts(ctx context.Context, q Query) []*schema.Post {
	var posts []*schema.Post
	s.whenReady(func() {
		all, err := s.backend.ListPosts(ctx)
		if err != nil {
			s.logger.Printf("WARNING: list posts: %v", err)
			posts = []*schema.Post{}
			return
		}
		posts = q.apply(all)
	})
	return posts
}

// GetAllTags returns all tag aggregates, unordered. On internal failure
// the result is empty, never an error.
func (s *Store) GetAllTags(ctx context.Context) []*schema.Tag {
	var tags []*schema.Tag
	s.whenReady(func() {
		all, err := s.backend.ListTags(ctx)
		if err != nil {
			s.logger.Printf("WARNING: list tags: %v", err)
			tags = []*schema.Tag{}
			return
		}
		tags = all
	})
	return tags
}

// SetSetting upserts a settings key.
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	var err error
	s.whenReady(func() {
		err = s.backend.PutSetting(ctx, key, value)
	})
	return err
}

// GetSetting returns the value stored for key, or def when the key is
// absent or the read fails (logged, not returned).
func (s *Store) GetSetting(ctx context.Context, key string, def any) any {
	value := def
	s.whenReady(func() {
		v, ok, err := s.backend.GetSetting(ctx, key)
		if err != nil {
			s.logger.Printf("WARNING: get setting %s: %v", key, err)
			return
		}
		if ok {
			value = v
		}
	})
	return value
}

// publish hands a committed mutation to the outbox. Local writes have
// already succeeded at this point; consumers own all further handling.
func (s *Store) publish(m Mutation, syncRemote bool) {
	if !syncRemote || s.outbox == nil {
		return
	}
	s.outbox.Publish(m)
}
