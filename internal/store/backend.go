package store

import (
	"context"

	"github.com/linkstash/linkstash/internal/schema"
)

// Kind identifies a storage backend implementation.
type Kind string

const (
	// KindSQLite is the primary indexed backend (transactional SQLite).
	KindSQLite Kind = "sqlite"

	// KindFlatfile is the fallback backend (single JSON document).
	KindFlatfile Kind = "flatfile"
)

// Backend is the storage contract shared by the sqlite and flatfile
// implementations.
//
// Tag-count bookkeeping is part of this contract: every post mutation
// adjusts the affected tag aggregates atomically with the post write.
// The sqlite backend uses a transaction for this; the flatfile backend
// is a single mutex-guarded read-modify-write of one document, which
// gives the same all-or-nothing effect.
type Backend interface {
	// Kind returns the backend's identifier.
	Kind() Kind

	// AddPost inserts a post and increments the count of every tag it
	// carries, creating tag records at count=1 as needed.
	//
	// The post must already have ID, timestamps, and platform populated
	// (the Store facade applies defaults before calling the backend).
	AddPost(ctx context.Context, post *schema.Post) error

	// GetPost returns the post with the given ID.
	// Returns ErrNotFound if no such post exists.
	GetPost(ctx context.Context, id string) (*schema.Post, error)

	// UpdatePost replaces the stored post with the same ID and adjusts
	// tag counts for the difference between the old and new tag sets.
	// Tags whose count reaches zero are deleted.
	//
	// Returns ErrNotFound if the post does not exist.
	UpdatePost(ctx context.Context, post *schema.Post) error

	// DeletePost removes a post and decrements (deleting at zero) every
	// tag it held.
	//
	// Returns ErrNotFound if the post does not exist.
	DeletePost(ctx context.Context, id string) error

	// ListPosts returns all stored posts, in no particular order.
	// Filtering, sorting, and pagination happen in the Store facade so
	// both backends share one query pipeline.
	ListPosts(ctx context.Context) ([]*schema.Post, error)

	// ListTags returns all tag aggregates, in no particular order.
	ListTags(ctx context.Context) ([]*schema.Tag, error)

	// PutSetting upserts a settings key. Values must be JSON-serializable.
	PutSetting(ctx context.Context, key string, value any) error

	// GetSetting returns the value for a settings key.
	// The second return is false when the key is absent.
	GetSetting(ctx context.Context, key string) (any, bool, error)

	// Close releases backend resources.
	Close() error
}
