package store

import "github.com/linkstash/linkstash/internal/schema"

// Action identifies the kind of local mutation carried by a Mutation.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Mutation describes a committed local write that may need to be pushed
// to the remote store. For deletes only the post's ID is meaningful.
type Mutation struct {
	Action Action
	Post   *schema.Post
}

// Outbox receives mutations after a successful local commit.
//
// The store publishes and forgets: whether the mutation is queued for
// remote sync, broadcast to dashboard clients, or dropped (offline,
// signed out) is the consumer's decision, and consumer failures are
// never surfaced to the caller of the triggering store operation.
type Outbox interface {
	Publish(m Mutation)
}

// OutboxFunc adapts a function to the Outbox interface.
type OutboxFunc func(m Mutation)

// Publish implements Outbox.
func (f OutboxFunc) Publish(m Mutation) { f(m) }

// MultiOutbox fans a publish out to several consumers in order.
type MultiOutbox []Outbox

// Publish implements Outbox.
func (mo MultiOutbox) Publish(m Mutation) {
	for _, o := range mo {
		o.Publish(m)
	}
}
