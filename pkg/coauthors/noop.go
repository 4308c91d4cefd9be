package coauthors

import "context"

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// GuestAuthorCreated does nothing and returns nil
func (n *NoopEventSink) GuestAuthorCreated(ctx context.Context, author *CreatedGuestAuthor) error {
	return nil
}
