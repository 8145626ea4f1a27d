// Package guard admits or redirects navigation between public, auth-only and
// protected pages based on the auth state.
package guard

import (
	"net/http"

	"github.com/blockedby/finlog/internal/models"
)

// Zone groups pages by who may see them.
type Zone int

// Zone constants.
const (
	// ZonePublic is always open.
	ZonePublic Zone = iota
	// ZoneAuth holds sign-in pages, open only while signed out.
	ZoneAuth
	// ZoneProtected is open only while signed in.
	ZoneProtected
)

func (z Zone) String() string {
	switch z {
	case ZonePublic:
		return "public"
	case ZoneAuth:
		return "auth"
	case ZoneProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// View is the slice of auth state the guard needs.
type View struct {
	IsAuthenticated bool
	// IsLoading is true until the startup session resolution has finished.
	IsLoading bool
	AuthType  models.AuthType
}

// Source provides the current View.
type Source interface {
	GuardView() View
}

// Resolver picks the Source for a request. A nil result reads as signed out.
type Resolver func(r *http.Request) Source

// Static resolves every request to src.
func Static(src Source) Resolver {
	return func(*http.Request) Source { return src }
}

// Action is what the guard decided.
type Action int

// Action constants.
const (
	Allow Action = iota
	Redirect
	Suspend
)

// Decision is the outcome of Decide.
type Decision struct {
	Action   Action
	Location string
}

// Default redirect targets.
const (
	HomePath    = "/dashboard"
	LandingPath = "/"
)

// Policy configures the guard.
type Policy struct {
	// Strict requires an auth type marker before a session counts as
	// authenticated.
	Strict bool
}

// Decide applies the default policy.
func Decide(v View, z Zone) Decision {
	return Policy{}.Decide(v, z)
}

// Decide returns the decision for entering zone z with view v.
func (p Policy) Decide(v View, z Zone) Decision {
	if z == ZonePublic {
		return Decision{Action: Allow}
	}
	if v.IsLoading {
		return Decision{Action: Suspend}
	}

	authenticated := v.IsAuthenticated
	if p.Strict && !v.AuthType.Valid() {
		authenticated = false
	}

	switch z {
	case ZoneAuth:
		if authenticated {
			return Decision{Action: Redirect, Location: HomePath}
		}
	case ZoneProtected:
		if !authenticated {
			return Decision{Action: Redirect, Location: LandingPath}
		}
	}
	return Decision{Action: Allow}
}

// Middleware guards next with the decision for zone. While the session is
// still resolving it serves loading instead. A nil source is a programming
// error and panics here rather than on the first request.
func (p Policy) Middleware(src Source, zone Zone, loading http.Handler) func(http.Handler) http.Handler {
	if src == nil {
		panic("guard: middleware used without an auth state source")
	}
	return p.MiddlewareFor(Static(src), zone, loading)
}

// MiddlewareFor is Middleware with the source picked per request.
func (p Policy) MiddlewareFor(resolve Resolver, zone Zone, loading http.Handler) func(http.Handler) http.Handler {
	if resolve == nil {
		panic("guard: middleware used without an auth state source")
	}
	if loading == nil {
		loading = http.HandlerFunc(defaultLoading)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var view View
			if src := resolve(r); src != nil {
				view = src.GuardView()
			}

			d := p.Decide(view, zone)
			switch d.Action {
			case Suspend:
				w.Header().Set("Cache-Control", "no-store")
				loading.ServeHTTP(w, r)
			case Redirect:
				status := http.StatusFound
				if r.Method != http.MethodGet && r.Method != http.MethodHead {
					status = http.StatusSeeOther
				}
				http.Redirect(w, r, d.Location, status)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Middleware is Policy{}.Middleware.
func Middleware(src Source, zone Zone, loading http.Handler) func(http.Handler) http.Handler {
	return Policy{}.Middleware(src, zone, loading)
}

func defaultLoading(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Refresh", "1")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Loading…"))
}
