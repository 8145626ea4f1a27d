package browser

import (
	"context"
	"time"

	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/session"
)

// Client is the session of one browser.
type Client struct {
	ID    string
	Store *session.Store
	Auth  *auth.Controller

	closers  []func()
	lastSeen time.Time
}

// NewClient groups a browser's store and controller.
func NewClient(id string, store *session.Store, ctrl *auth.Controller) *Client {
	return &Client{ID: id, Store: store, Auth: ctrl}
}

// OnClose runs fn when the client is evicted.
func (c *Client) OnClose(fn func()) {
	c.closers = append(c.closers, fn)
}

func (c *Client) close() {
	for _, fn := range c.closers {
		fn()
	}
	c.Auth.Close()
}

// Factory builds the client for a browser id. The durable record of a
// returning browser is found through id.
type Factory func(ctx context.Context, id string) (*Client, error)

type ctxKey struct{}

// NewContext returns ctx carrying c.
func NewContext(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the client the registry attached to ctx.
func FromContext(ctx context.Context) (*Client, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Client)
	return c, ok && c != nil
}
