package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blockedby/finlog/internal/api"
	"github.com/blockedby/finlog/internal/apiclient"
	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/logger"
	"github.com/blockedby/finlog/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// telegramRemote answers /auth/telegram with the account bound to the
// init-data.
func telegramRemote(t *testing.T) *httptest.Server {
	accounts := map[string]apiclient.AuthResponse{
		"init-alice": {Token: "tok-alice", User: apiclient.RemoteUser{ID: "alice", Email: "alice@example.com"}},
		"init-bob":   {Token: "tok-bob", User: apiclient.RemoteUser{ID: "bob", Email: "bob@example.com"}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apiclient.TelegramAuthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		resp, ok := accounts[req.TelegramInitData]
		if !ok {
			http.Error(w, `{"message":"unknown init data"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newApp serves the JSON API with one client per browser cookie.
func newApp(t *testing.T, remoteURL string) (*httptest.Server, *Registry) {
	t.Helper()
	remote := apiclient.New(apiclient.Config{BaseURL: remoteURL, Timeout: 5 * time.Second, RPS: 100, Burst: 100}, logger.Nop())

	reg := NewRegistry(NewSigner(testSecret, time.Hour), func(_ context.Context, id string) (*Client, error) {
		store := session.NewStore(session.NewMemoryPersister(), nil)
		return NewClient(id, store, auth.NewController(remote, store)), nil
	})
	t.Cleanup(reg.Close)

	apiSrv := api.NewServer(&api.Config{Title: "finlog"}, func(ctx context.Context) (api.AuthService, bool) {
		c, ok := FromContext(ctx)
		if !ok {
			return nil, false
		}
		return c.Auth, true
	})

	r := chi.NewRouter()
	r.Use(reg.Middleware)
	r.Mount("/", apiSrv.Handler())

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, reg
}

func browserClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func telegramSignIn(t *testing.T, c *http.Client, base string, tgID int64, initData string) api.TelegramResponse {
	t.Helper()
	body := `{"url":"` + base + `/telegram","bridge":{"initData":"` + initData + `","platform":"ios","user":{"id":` +
		jsonInt(tgID) + `,"first_name":"User"}}}`

	resp, err := c.Post(base+"/api/v1/auth/telegram", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.True(t, resp.StatusCode >= 200 && resp.StatusCode < 300, "status %d", resp.StatusCode)

	var out api.TelegramResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func authState(t *testing.T, c *http.Client, base string) api.StateResponse {
	t.Helper()
	resp, err := c.Get(base + "/api/v1/auth/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func userID(st api.StateResponse) string {
	if st.Session.User == nil {
		return ""
	}
	return st.Session.User.ID
}

func TestTelegramIdentitiesStayInTheirBrowser(t *testing.T) {
	remote := telegramRemote(t)
	app, reg := newApp(t, remote.URL)

	alice := browserClient(t)
	bob := browserClient(t)

	signedIn := telegramSignIn(t, alice, app.URL, 1, "init-alice")
	assert.True(t, signedIn.Attempted)
	assert.Equal(t, "alice", userID(signedIn.StateResponse))

	before := authState(t, bob, app.URL)
	assert.False(t, before.Session.IsAuthenticated, "a new browser starts signed out")
	assert.Empty(t, userID(before))

	signedIn = telegramSignIn(t, bob, app.URL, 2, "init-bob")
	assert.True(t, signedIn.Attempted, "another identity is not treated as already signed in")
	assert.Equal(t, "bob", userID(signedIn.StateResponse))

	assert.Equal(t, "alice", userID(authState(t, alice, app.URL)))
	assert.Equal(t, "bob", userID(authState(t, bob, app.URL)))

	anon := authState(t, &http.Client{}, app.URL)
	assert.False(t, anon.Session.IsAuthenticated, "requests without the cookie see no session")
	assert.Equal(t, 3, reg.Len())
}

func TestTelegramAccountSwitchInOneBrowser(t *testing.T) {
	remote := telegramRemote(t)
	app, _ := newApp(t, remote.URL)
	c := browserClient(t)

	require.Equal(t, "alice", userID(telegramSignIn(t, c, app.URL, 1, "init-alice").StateResponse))

	switched := telegramSignIn(t, c, app.URL, 2, "init-bob")
	assert.True(t, switched.Attempted)
	assert.Equal(t, "bob", userID(switched.StateResponse))
}

func TestLogoutEndsOnlyOwnSession(t *testing.T) {
	remote := telegramRemote(t)
	app, _ := newApp(t, remote.URL)
	alice := browserClient(t)
	bob := browserClient(t)

	telegramSignIn(t, alice, app.URL, 1, "init-alice")
	telegramSignIn(t, bob, app.URL, 2, "init-bob")

	resp, err := bob.Post(app.URL+"/api/v1/auth/logout", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.False(t, authState(t, bob, app.URL).Session.IsAuthenticated)
	assert.Equal(t, "alice", userID(authState(t, alice, app.URL)))
}
