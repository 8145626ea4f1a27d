package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/blockedby/finlog/internal/logger"
	"github.com/blockedby/finlog/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Registry keeps the live clients keyed by browser id.
type Registry struct {
	signer  *Signer
	build   Factory
	secure  bool
	idle    time.Duration
	metrics *metrics.AuthMetrics
	log     *logger.Logger
	now     func() time.Time
	exempt  map[string]bool

	group   singleflight.Group
	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithSecureCookies marks cookies Secure and lets them cross sites, which
// the Mini-App needs when the Telegram web client frames it.
func WithSecureCookies(secure bool) Option {
	return func(r *Registry) { r.secure = secure }
}

// WithIdleTTL sets how long an unused client stays in memory.
func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) { r.idle = d }
}

// WithMetrics reports the number of live clients.
func WithMetrics(m *metrics.AuthMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithExempt lets requests for paths through without a client, for
// endpoints polled by monitoring.
func WithExempt(paths ...string) Option {
	return func(r *Registry) {
		for _, p := range paths {
			r.exempt[p] = true
		}
	}
}

// ErrClosed is returned once the registry has been closed.
var ErrClosed = errors.New("client registry closed")

// NewRegistry creates a registry building clients with build.
func NewRegistry(signer *Signer, build Factory, opts ...Option) *Registry {
	r := &Registry{
		signer:  signer,
		build:   build,
		idle:    30 * time.Minute,
		log:     logger.Nop(),
		now:     time.Now,
		clients: make(map[string]*Client),
		exempt:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Component("browser")
	return r
}

// Middleware attaches the requesting browser's client to the request
// context. A browser without a valid cookie gets a new id, and with it a
// fresh signed-out session.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.exempt[req.URL.Path] {
			next.ServeHTTP(w, req)
			return
		}

		id, err := r.identify(w, req)
		if err != nil {
			r.log.Error().Err(err).Msg("issue client cookie")
			http.Error(w, "client session unavailable", http.StatusServiceUnavailable)
			return
		}

		c, err := r.client(req.Context(), id)
		if err != nil {
			r.log.Error().Err(err).Str("client", id).Msg("build client")
			http.Error(w, "client session unavailable", http.StatusServiceUnavailable)
			return
		}

		next.ServeHTTP(w, req.WithContext(NewContext(req.Context(), c)))
	})
}

// identify returns the browser id from the request cookie, issuing a new
// cookie when it is missing or invalid and renewing it past half its life.
func (r *Registry) identify(w http.ResponseWriter, req *http.Request) (string, error) {
	if ck, err := req.Cookie(CookieName); err == nil {
		id, issued, err := r.signer.Verify(ck.Value)
		if err == nil {
			if r.now().Sub(issued) > r.signer.MaxAge()/2 {
				if err := r.setCookie(w, id); err != nil {
					return "", err
				}
			}
			return id, nil
		}
		r.log.Debug().Err(err).Msg("replacing client cookie")
	}

	id := uuid.NewString()
	if err := r.setCookie(w, id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Registry) setCookie(w http.ResponseWriter, id string) error {
	value, err := r.signer.Sign(id)
	if err != nil {
		return fmt.Errorf("sign client cookie: %w", err)
	}

	sameSite := http.SameSiteLaxMode
	if r.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(r.signer.MaxAge().Seconds()),
		HttpOnly: true,
		Secure:   r.secure,
		SameSite: sameSite,
	})
	return nil
}

// client returns the live client for id, building and starting it on
// first use. Concurrent first requests share one build.
func (r *Registry) client(ctx context.Context, id string) (*Client, error) {
	if c, err := r.touch(id); c != nil || err != nil {
		return c, err
	}

	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		if c, err := r.touch(id); c != nil || err != nil {
			return c, err
		}

		bg := context.WithoutCancel(ctx)
		c, err := r.build(bg, id)
		if err != nil {
			return nil, err
		}
		c.Auth.Start(bg, nil)

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			c.close()
			return nil, ErrClosed
		}
		c.lastSeen = r.now()
		r.clients[id] = c
		n := len(r.clients)
		r.mu.Unlock()

		r.metrics.SetClients(n)
		r.log.Debug().Str("client", id).Msg("client started")
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

func (r *Registry) touch(id string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	c := r.clients[id]
	if c != nil {
		c.lastSeen = r.now()
	}
	return c, nil
}

// Lookup returns the live client for id without creating one.
func (r *Registry) Lookup(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep closes clients idle for longer than the idle TTL and returns how
// many it closed. Their durable records stay; the browser resumes on its
// next request.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*Client
	for id, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			stale = append(stale, c)
			delete(r.clients, id)
		}
	}
	n := len(r.clients)
	r.mu.Unlock()

	for _, c := range stale {
		c.close()
	}
	if len(stale) > 0 {
		r.metrics.SetClients(n)
		r.log.Debug().Int("evicted", len(stale)).Int("live", n).Msg("idle clients swept")
	}
	return len(stale)
}

// Run sweeps idle clients until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	every := r.idle / 2
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every client. Later requests get ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	r.metrics.SetClients(0)
}
