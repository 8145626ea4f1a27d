package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/blockedby/finlog/internal/guard"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Starts(t *testing.T) {
	cfg := &Config{Port: 0} // random port
	srv := NewServer(cfg)

	go func() { _ = srv.Start() }()
	defer func() { _ = srv.Stop(context.Background()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.BaseURL() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond)
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := NewServer(&Config{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "finlog_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	srv := NewServer(&Config{}, WithMetrics(reg))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "finlog_test_total 1")
}

func TestServer_NoMetricsWithoutGatherer(t *testing.T) {
	srv := NewServer(&Config{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CORSForTelegramOrigin(t *testing.T) {
	srv := NewServer(&Config{AllowedOrigins: []string{"https://web.telegram.org"}})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://web.telegram.org")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://web.telegram.org", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_WebSocketReceivesBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := NewServer(&Config{}, WithHub(hub))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/ws"}
	c, wsResp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer c.Close()
	if wsResp != nil && wsResp.Body != nil {
		defer wsResp.Body.Close()
	}

	// registration is asynchronous; keep broadcasting until one arrives
	received := make(chan []byte, 1)
	go func() {
		_, msg, err := c.ReadMessage()
		if err == nil {
			received <- msg
		}
	}()

	require.Eventually(t, func() bool {
		hub.Broadcast(NavigateEvent("/dashboard"))
		select {
		case msg := <-received:
			var evt WSEvent
			return json.Unmarshal(msg, &evt) == nil && evt.Type == EventNavigate
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}

type mockPagesHandler struct{}

func (mockPagesHandler) Landing(w http.ResponseWriter, _ *http.Request)        { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) Telegram(w http.ResponseWriter, _ *http.Request)       { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) Login(w http.ResponseWriter, _ *http.Request)          { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) Register(w http.ResponseWriter, _ *http.Request)       { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) ForgotPassword(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) ResetPassword(w http.ResponseWriter, _ *http.Request)  { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) Dashboard(w http.ResponseWriter, _ *http.Request)      { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) Expenses(w http.ResponseWriter, _ *http.Request)       { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) Schedules(w http.ResponseWriter, _ *http.Request)      { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) Analytics(w http.ResponseWriter, _ *http.Request)      { w.WriteHeader(http.StatusOK) }
func (mockPagesHandler) Loading(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusAccepted)
}

type viewSource guard.View

func (v viewSource) GuardView() guard.View { return guard.View(v) }

func TestServer_RegisterPagesHandlerAppliesZones(t *testing.T) {
	tests := []struct {
		name   string
		view   guard.View
		path   string
		status int
	}{
		{"public while loading", guard.View{IsLoading: true}, "/", http.StatusOK},
		{"protected while loading", guard.View{IsLoading: true}, "/dashboard", http.StatusAccepted},
		{"protected signed out", guard.View{}, "/expenses", http.StatusFound},
		{"protected signed in", guard.View{IsAuthenticated: true}, "/analytics", http.StatusOK},
		{"auth zone signed in", guard.View{IsAuthenticated: true}, "/register", http.StatusFound},
		{"auth zone signed out", guard.View{}, "/forgot-password", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&Config{})
			srv.RegisterPagesHandler(mockPagesHandler{}, guard.Static(viewSource(tt.view)), guard.Policy{})

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestServer_RegisterPagesHandlerIgnoresOtherTypes(t *testing.T) {
	srv := NewServer(&Config{})
	srv.RegisterPagesHandler(struct{}{}, guard.Static(viewSource{}), guard.Policy{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MountAPI(t *testing.T) {
	srv := NewServer(&Config{})
	srv.MountAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/state", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v1/auth/state", rec.Body.String())
}

func TestServer_WebSocketSendToOwner(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := NewServer(&Config{}, WithHub(hub), WithOwner(func(r *http.Request) string {
		return r.URL.Query().Get("owner")
	}))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	dial := func(owner string) *websocket.Conn {
		u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/ws", RawQuery: "owner=" + owner}
		c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
		require.NoError(t, err)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return c
	}
	alice := dial("alice")
	defer alice.Close()
	bob := dial("bob")
	defer bob.Close()

	received := make(chan []byte, 1)
	go func() {
		_, msg, err := alice.ReadMessage()
		if err == nil {
			received <- msg
		}
	}()
	require.Eventually(t, func() bool {
		hub.SendTo("alice", NavigateEvent("/dashboard"))
		select {
		case <-received:
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	_ = bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "other owners receive nothing")
}

func TestServer_WebSocketRejectsForeignOrigin(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := NewServer(&Config{}, WithHub(hub))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/ws"}
	_, resp, err := websocket.DefaultDialer.Dial(u.String(), http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_SameOriginGuardsPosts(t *testing.T) {
	srv := NewServer(&Config{AllowedOrigins: []string{"https://web.telegram.org"}})
	srv.Router().Post("/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})

	tests := []struct {
		name   string
		method string
		origin string
		status int
	}{
		{"no origin", http.MethodPost, "", http.StatusSeeOther},
		{"same origin", http.MethodPost, "http://example.com", http.StatusSeeOther},
		{"allowed origin", http.MethodPost, "https://web.telegram.org", http.StatusSeeOther},
		{"foreign origin", http.MethodPost, "https://evil.example", http.StatusForbidden},
		{"foreign get", http.MethodGet, "https://evil.example", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/logout"
			if tt.method == http.MethodGet {
				path = "/health"
			}
			req := httptest.NewRequest(tt.method, path, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestServer_WithMiddlewareRunsBeforeRoutes(t *testing.T) {
	srv := NewServer(&Config{}, WithMiddleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Client", "seen")
			next.ServeHTTP(w, r)
		})
	}))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "seen", rec.Header().Get("X-Client"))
}
