// Package publisher forwards auth events to NATS.
package publisher

import (
	"context"
	"fmt"

	"github.com/blockedby/finlog/internal/models"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NATSPublisher implements auth.EventPublisher
type NATSPublisher struct {
	client NATSClient
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(client NATSClient) *NATSPublisher {
	return &NATSPublisher{client: client}
}

// Subject returns the subject an event is published on.
func Subject(ev models.AuthEvent) string {
	return "auth." + string(ev.Op)
}

// PublishAuthEvent publishes one auth event
func (p *NATSPublisher) PublishAuthEvent(ctx context.Context, ev models.AuthEvent) error {
	if err := p.client.Publish(ctx, Subject(ev), ev); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
