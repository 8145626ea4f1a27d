// Package nats provides a client for NATS JetStream publishing.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// AuthStream holds every auth event.
const (
	AuthStream   = "AUTH_EVENTS"
	AuthSubjects = "auth.>"
)

// Client wraps nats connection and jetstream context.
type Client struct {
	Conn *nats.Conn
	js   jetstream.JetStream
}

// New creates a new nats client with jetstream support.
func New(_ context.Context, natsURL string) (*Client, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("finlog"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Client{Conn: conn, js: js}, nil
}

// EnsureStream creates a stream if it doesn't exist.
func (c *Client) EnsureStream(ctx context.Context, name string, subjects []string) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
		MaxAge:   30 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

// Publish publishes a JSON message to a subject and waits for the ack.
func (c *Client) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if _, err := c.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the nats connection.
func (c *Client) Close() {
	if err := c.Conn.Drain(); err != nil {
		c.Conn.Close()
	}
}

// IsConnected returns true if connected to nats.
func (c *Client) IsConnected() bool {
	return c.Conn.IsConnected()
}
