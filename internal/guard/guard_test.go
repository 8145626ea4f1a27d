package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/blockedby/finlog/internal/models"
)

type staticSource View

func (s staticSource) GuardView() View { return View(s) }

func TestDecide(t *testing.T) {
	signedIn := View{IsAuthenticated: true, AuthType: models.AuthTypePassword}
	signedOut := View{}
	loading := View{IsLoading: true}

	tests := []struct {
		name string
		view View
		zone Zone
		want Decision
	}{
		{"public signed out", signedOut, ZonePublic, Decision{Action: Allow}},
		{"public signed in", signedIn, ZonePublic, Decision{Action: Allow}},
		{"public while loading", loading, ZonePublic, Decision{Action: Allow}},
		{"auth signed out", signedOut, ZoneAuth, Decision{Action: Allow}},
		{"auth signed in", signedIn, ZoneAuth, Decision{Action: Redirect, Location: HomePath}},
		{"auth while loading", loading, ZoneAuth, Decision{Action: Suspend}},
		{"protected signed in", signedIn, ZoneProtected, Decision{Action: Allow}},
		{"protected signed out", signedOut, ZoneProtected, Decision{Action: Redirect, Location: LandingPath}},
		{"protected while loading", loading, ZoneProtected, Decision{Action: Suspend}},
		{"protected without auth type", View{IsAuthenticated: true}, ZoneProtected, Decision{Action: Allow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.view, tt.zone))
		})
	}
}

func TestPolicy_StrictRequiresAuthType(t *testing.T) {
	p := Policy{Strict: true}
	noMarker := View{IsAuthenticated: true}

	assert.Equal(t, Decision{Action: Redirect, Location: LandingPath}, p.Decide(noMarker, ZoneProtected))
	assert.Equal(t, Decision{Action: Allow}, p.Decide(noMarker, ZoneAuth))

	marked := View{IsAuthenticated: true, AuthType: models.AuthTypeTelegramWebApp}
	assert.Equal(t, Decision{Action: Allow}, p.Decide(marked, ZoneProtected))
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("page"))
	})

	tests := []struct {
		name       string
		view       View
		method     string
		wantCode   int
		wantLoc    string
		wantBody   string
		wantHeader string
	}{
		{"allowed", View{IsAuthenticated: true}, http.MethodGet, http.StatusOK, "", "page", ""},
		{"redirect get", View{}, http.MethodGet, http.StatusFound, "/", "", ""},
		{"redirect post", View{}, http.MethodPost, http.StatusSeeOther, "/", "", ""},
		{"suspended", View{IsLoading: true}, http.MethodGet, http.StatusOK, "", "Loading…", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.With(Middleware(staticSource(tt.view), ZoneProtected, nil)).Get("/dashboard", ok)
			r.With(Middleware(staticSource(tt.view), ZoneProtected, nil)).Post("/dashboard", ok)

			req := httptest.NewRequest(tt.method, "/dashboard", nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantLoc, rr.Header().Get("Location"))
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
			assert.Equal(t, tt.wantHeader, rr.Header().Get("Refresh"))
		})
	}
}

func TestMiddleware_CustomLoadingView(t *testing.T) {
	loading := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("spinner"))
	})
	h := Middleware(staticSource(View{IsLoading: true}), ZoneAuth, loading)(http.NotFoundHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, "spinner", rr.Body.String())
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestMiddleware_NilSourcePanics(t *testing.T) {
	assert.Panics(t, func() {
		Middleware(nil, ZoneProtected, nil)
	})
}

func TestMiddlewareFor_SourcePerRequest(t *testing.T) {
	sources := map[string]Source{
		"ann": staticSource(View{IsAuthenticated: true}),
		"bob": staticSource(View{}),
	}
	resolve := func(r *http.Request) Source {
		src, ok := sources[r.Header.Get("X-Who")]
		if !ok {
			return nil
		}
		return src
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Policy{}.MiddlewareFor(resolve, ZoneProtected, nil)(ok)

	tests := []struct {
		who    string
		status int
	}{
		{"ann", http.StatusNoContent},
		{"bob", http.StatusFound},
		{"", http.StatusFound},
	}
	for _, tt := range tests {
		t.Run("who="+tt.who, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			req.Header.Set("X-Who", tt.who)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}

	assert.Panics(t, func() { Policy{}.MiddlewareFor(nil, ZoneAuth, nil) })
}
