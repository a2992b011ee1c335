package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/linkstash/linkstash/internal/remote"
	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/store"
)

// syncer implements the Syncer interface.
type syncer struct {
	store   *store.Store
	remote  remote.Store
	session *session.Session
	queue   *Queue
	logger  *log.Logger

	online  atomic.Bool
	trigger chan struct{}
}

// New creates a new Syncer instance.
//
// The store must be initialized (or initializing) before the first cycle
// runs. The syncer subscribes to session identity changes: signing in
// triggers a cycle so a fresh login pulls the user's remote posts.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	sess := session.New()
//	syncer := sync.New(st, remoteClient, sess, nil)
//	st2 := store.New(dir, store.WithOutbox(syncer))
func New(st *store.Store, rs remote.Store, sess *session.Session, logger *log.Logger) Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	s := &syncer{
		store:   st,
		remote:  rs,
		session: sess,
		queue:   NewQueue(),
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
	sess.Subscribe(func(user string) {
		if user != "" {
			s.logger.Printf("User signed in: %s", user)
			s.signal()
		}
	})
	return s
}

// Publish implements Syncer.Publish (and store.Outbox).
func (s *syncer) Publish(m store.Mutation) {
	if !s.Online() || !s.session.SignedIn() {
		return
	}
	s.queue.Push(m)
	s.signal()
}

// SetOnline implements Syncer.SetOnline.
func (s *syncer) SetOnline(online bool) {
	was := s.online.Swap(online)
	if online && !was {
		s.logger.Printf("Connectivity restored")
		s.signal()
	}
	if !online && was {
		s.logger.Printf("Connectivity lost")
	}
}

// Online implements Syncer.Online.
func (s *syncer) Online() bool {
	return s.online.Load()
}

// QueueLen implements Syncer.QueueLen.
func (s *syncer) QueueLen() int {
	return s.queue.Len()
}

// signal requests a sync cycle without blocking; pending requests
// coalesce into one.
func (s *syncer) signal() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run implements Syncer.Run.
func (s *syncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			if err := s.Sync(ctx); err != nil {
				s.logger.Printf("WARNING: sync cycle failed: %v", err)
			}
		}
	}
}

// Sync implements Syncer.Sync.
func (s *syncer) Sync(ctx context.Context) error {
	user := s.session.CurrentUser()
	if user == "" {
		return nil
	}
	if !s.Online() {
		return nil
	}

	// 1. Drain the pending queue strictly FIFO. A push failure aborts
	// the cycle; already-dequeued entries are gone.
	for {
		m, ok := s.queue.Pop()
		if !ok {
			break
		}
		if err := s.push(ctx, user, m); err != nil {
			return fmt.Errorf("failed to push queued %s for %s: %w", m.Action, m.Post.ID, err)
		}
	}

	// 2. Fetch all remote posts for this user.
	remotePosts, err := s.remote.ListPosts(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to fetch remote posts: %w", err)
	}

	local := s.store.GetAllPosts(ctx, store.Query{})
	localByID := make(map[string]*localPost, len(local))
	for _, p := range local {
		localByID[p.ID] = &localPost{post: p}
	}

	// 3. Local reconciliation: insert missing posts, overwrite when the
	// remote copy is strictly newer. Neither path re-queues a mutation.
	var pulled, updated int
	for _, rp := range remotePosts {
		lp, exists := localByID[rp.ID]
		if !exists {
			if err := s.store.ImportPost(ctx, rp); err != nil {
				s.logger.Printf("WARNING: failed to import remote post %s: %v", rp.ID, err)
				continue
			}
			pulled++
			continue
		}
		lp.seenRemotely = true
		if rp.UpdatedAt.After(lp.post.UpdatedAt) {
			if err := s.store.ImportPost(ctx, rp); err != nil {
				s.logger.Printf("WARNING: failed to overwrite local post %s: %v", rp.ID, err)
				continue
			}
			updated++
		}
	}

	// 4. Push-only reconciliation: local posts with no remote
	// counterpart are inserted remotely, tagged with the owner.
	var pushed int
	for _, lp := range localByID {
		if lp.seenRemotely {
			continue
		}
		if err := s.remote.InsertPost(ctx, user, lp.post); err != nil {
			return fmt.Errorf("failed to push local post %s: %w", lp.post.ID, err)
		}
		pushed++
	}

	if pulled+updated+pushed > 0 {
		s.logger.Printf("Sync cycle complete: pulled=%d, updated=%d, pushed=%d", pulled, updated, pushed)
	}
	return nil
}

// localPost pairs a local post with its reconciliation state.
type localPost struct {
	post         *schema.Post
	seenRemotely bool
}

// push sends one queued mutation to the remote store.
func (s *syncer) push(ctx context.Context, owner string, m store.Mutation) error {
	switch m.Action {
	case store.ActionAdd:
		return s.remote.InsertPost(ctx, owner, m.Post)
	case store.ActionUpdate:
		return s.remote.UpdatePost(ctx, owner, m.Post)
	case store.ActionDelete:
		return s.remote.DeletePost(ctx, owner, m.Post.ID)
	default:
		return fmt.Errorf("unknown sync action: %s", m.Action)
	}
}
