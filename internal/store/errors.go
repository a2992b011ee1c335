package store

import "errors"

// Common errors returned by store operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, store.ErrNotFound) {
//	    // Handle mutation against a missing post
//	}
var (
	// ErrNotFound is returned when a mutation targets a post ID that
	// does not exist in the local store.
	ErrNotFound = errors.New("post not found")

	// ErrDuplicateURL is returned when an insert collides with an
	// existing post's URL. Only the flatfile backend reports this
	// directly; the sqlite backend's unique index surfaces the same
	// condition as a generic storage error.
	ErrDuplicateURL = errors.New("url already saved")

	// ErrClosed is returned when an operation is invoked after the
	// backend has been closed.
	ErrClosed = errors.New("store is closed")
)

// IsNotFound returns true if the error indicates a missing post.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateURL returns true if the error indicates a URL collision.
func IsDuplicateURL(err error) bool {
	return errors.Is(err, ErrDuplicateURL)
}
