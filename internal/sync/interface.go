// Package sync reconciles the local store with the remote post store.
package sync

import (
	"context"

	"github.com/linkstash/linkstash/internal/store"
)

// Syncer keeps the remote post store in sync with local mutations.
//
// The syncer consumes the store's outbox: committed local mutations are
// queued FIFO and pushed to the remote at the start of every sync cycle.
// The cycle then pulls all remote posts for the current user and applies
// a last-write-wins merge (remote timestamp wins) against the local
// store.
//
// Sync is strictly best-effort. A mutation's local commit has already
// succeeded by the time the syncer sees it; remote failures are logged
// and swallowed, never surfaced to the caller of the triggering store
// operation. The pending queue lives in memory only and does not survive
// a process restart.
type Syncer interface {
	// Publish implements store.Outbox.
	//
	// The mutation is queued for remote push only when the syncer is
	// online and a user is signed in; otherwise it is dropped for
	// remote purposes (the local write is already committed). Queuing
	// also signals the Run worker to start a cycle.
	Publish(m store.Mutation)

	// Sync performs one reconciliation cycle:
	//  1. Drain the pending queue strictly FIFO, pushing each mutation
	//     to the remote. A failure aborts the cycle; entries already
	//     dequeued are lost.
	//  2. Fetch all remote posts owned by the current user.
	//  3. For each remote post: insert it locally if missing, or
	//     overwrite the local copy when the remote updatedAt is
	//     strictly newer. Neither path re-queues a mutation.
	//  4. Push local posts with no remote counterpart to the remote.
	//
	// Deletions never propagate during steps 3-4: a post missing on one
	// side is treated as new on the other, not as a tombstone.
	//
	// Sync returns immediately with a nil error when offline or signed
	// out. Overlapping cycles are not mutually excluded; the queue
	// itself is goroutine-safe.
	Sync(ctx context.Context) error

	// Run consumes sync triggers until ctx is cancelled. Triggers come
	// from Publish, SetOnline transitions, and sign-in events; rapid
	// triggers coalesce into one pending cycle. Cycle errors are
	// logged, never returned.
	Run(ctx context.Context)

	// SetOnline records the connectivity state. An offline-to-online
	// transition signals the Run worker to start a cycle.
	SetOnline(online bool)

	// Online reports the last recorded connectivity state.
	Online() bool

	// QueueLen returns the number of pending queued mutations.
	QueueLen() int
}
