package domain

import "context"

// ResponseStore is the minimal abstraction over durable response backends.
// Append is called once per accepted answer; ListByParticipant is the
// resume lookup source.
type ResponseStore interface {
	// Append durably records one response. Implementations reject
	// duplicate (participant, pair) keys with DuplicateResponseError.
	Append(ctx context.Context, r Response) error
	// ListByParticipant returns all recorded responses for the
	// identifier, in append order. An unknown identifier yields an empty
	// slice and no error.
	ListByParticipant(ctx context.Context, participantID string) ([]Response, error)
	// List returns every recorded response in append order.
	List(ctx context.Context) ([]Response, error)
	// Close releases backend resources.
	Close() error
}
