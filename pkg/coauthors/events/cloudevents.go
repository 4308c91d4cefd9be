// Package events publishes guest author lifecycle events as CloudEvents.
package events

import (
	"context"
	"errors"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/tendant/coauthors/pkg/coauthors"
)

const (
	// TypeGuestAuthorCreated is the CloudEvents type of a new guest author.
	TypeGuestAuthorCreated = "com.coauthors.guest_author.created"
	defaultSource          = "coauthors"
)

// Config options for the CloudEvents sink
type Config struct {
	TargetURL string // HTTP endpoint events are POSTed to
	Source    string // CloudEvents source attribute (default: coauthors)
}

// Sink delivers events over HTTP in binary content mode
type Sink struct {
	client cloudevents.Client
	source string
}

var _ coauthors.EventSink = (*Sink)(nil)

// New creates a CloudEvents HTTP sink
func New(config Config) (*Sink, error) {
	if config.TargetURL == "" {
		return nil, errors.New("event target URL is required")
	}
	if config.Source == "" {
		config.Source = defaultSource
	}

	protocol, err := cloudevents.NewHTTP(cloudevents.WithTarget(config.TargetURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create http protocol: %w", err)
	}
	client, err := cloudevents.NewClient(protocol, cloudevents.WithTimeNow(), cloudevents.WithUUIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}

	return &Sink{client: client, source: config.Source}, nil
}

// GuestAuthorCreated sends the created guest author as the event payload
func (s *Sink) GuestAuthorCreated(ctx context.Context, author *coauthors.CreatedGuestAuthor) error {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetType(TypeGuestAuthorCreated)
	event.SetSource(s.source)
	event.SetSubject(author.Login)
	if err := event.SetData(cloudevents.ApplicationJSON, author); err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}

	result := s.client.Send(ctx, event)
	if cloudevents.IsUndelivered(result) {
		return fmt.Errorf("failed to deliver event: %w", result)
	}
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("event rejected: %w", result)
	}
	return nil
}
