package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/finlog/internal/telegram"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second, RPS: 1000, Burst: 10}, nil)
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, LoginRequest{Email: "a@b.com", Password: "pw"}, body)

		_, _ = w.Write([]byte(`{"token":"t1","user":{"id":1,"email":"a@b.com","name":"A B"}}`))
	})

	resp, err := c.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "t1", resp.Token)
	assert.Equal(t, FlexID("1"), resp.User.ID)

	u := resp.User.ToModel()
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, "A", u.FirstName)
	assert.Equal(t, "B", u.LastName)
}

func TestClient_Register(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		var body RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ann Lee", body.Name)
		_, _ = w.Write([]byte(`{"token":"t2","user":{"id":"u-2","email":"ann@x.io","firstName":"Ann","lastName":"Lee"}}`))
	})

	resp, err := c.Register(context.Background(), "ann@x.io", "secret", "Ann Lee")
	require.NoError(t, err)
	assert.Equal(t, "t2", resp.Token)
	assert.Equal(t, FlexID("u-2"), resp.User.ID)
}

func TestClient_TelegramAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/telegram", r.URL.Path)
		raw := map[string]any{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "abc", raw["telegramInitData"])
		user := raw["user"].(map[string]any)
		assert.Equal(t, float64(42), user["id"])
		assert.Equal(t, "Ann", user["first_name"])
		_, _ = w.Write([]byte(`{"token":"tg","user":{"id":"7"}}`))
	})

	resp, err := c.TelegramAuth(context.Background(), "abc", &telegram.User{ID: 42, FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "tg", resp.Token)
}

func TestClient_TelegramWidgetAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/telegram/login", r.URL.Path)
		var body TelegramWidgetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(42), body.TelegramID)
		assert.Equal(t, "h", body.Hash)
		_, _ = w.Write([]byte(`{"token":"tw","user":{"id":"7"}}`))
	})

	resp, err := c.TelegramWidgetAuth(context.Background(), &telegram.LoginWidgetData{ID: 42, AuthDate: 1, Hash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "tw", resp.Token)
}

func TestClient_PasswordReset(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.RequestPasswordReset(context.Background(), "a@b.com"))
	require.NoError(t, c.ResetPassword(context.Background(), "reset-token", "new-pw"))
	assert.Equal(t, []string{"/auth/request-password-reset", "/auth/reset-password"}, paths)
}

func TestClient_MeSendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"1","email":"a@b.com"}`))
	})

	u, err := c.Me(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusUnauthorized, `{"message":"Invalid credentials"}`, "Invalid credentials"},
		{"error field", http.StatusBadRequest, `{"error":"email taken"}`, "email taken"},
		{"plain text body", http.StatusInternalServerError, `boom`, "Internal Server Error"},
		{"empty body", http.StatusForbidden, ``, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Login(context.Background(), "a@b.com", "pw")
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, IsStatus(err, tt.status))
		})
	}
}

func TestClient_EmptyToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"1"}}`))
	})

	_, err := c.Login(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, Timeout: time.Second, RPS: 100}, nil)
	_, err := c.Login(context.Background(), "a@b.com", "pw")
	require.Error(t, err)

	var apiErr *APIError
	assert.NotErrorAs(t, err, &apiErr)
}

func TestClient_RetryAfterPausesLimiter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Login(context.Background(), "a@b.com", "pw")
	require.True(t, IsStatus(err, http.StatusTooManyRequests))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Login(ctx, "a@b.com", "pw")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		in   string
		want FlexID
	}{
		{`"abc"`, "abc"},
		{`42`, "42"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id FlexID
		require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
		assert.Equal(t, tt.want, id)
	}

	var id FlexID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"", "", ""},
		{"Ann", "Ann", ""},
		{"A B", "A", "B"},
		{"  Mary  Ann   Lee ", "Mary", "Ann Lee"},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}
