package event

import "context"

// Repository reads committed events. Events are written by the ledger
// store inside the transition that produced them.
type Repository interface {
	List(ctx context.Context, opts ListOptions) ([]Event, error)
}

// Publisher fans committed events out to external observers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}
