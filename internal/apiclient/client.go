// Package apiclient talks to the remote finance REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/blockedby/finlog/internal/logger"
	"github.com/blockedby/finlog/internal/telegram"
)

const maxErrorBody = 64 << 10

// Config holds the configuration for the API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// Client is a JSON client for the remote API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *RateLimiter
	log     *logger.Logger
}

// New creates a client. Zero RPS falls back to the default limiter.
func New(cfg Config, log *logger.Logger) *Client {
	limiter := DefaultRateLimiter()
	if cfg.RPS > 0 {
		limiter = NewRateLimiter(cfg.RPS, cfg.Burst)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		log:     log.Component("apiclient"),
	}
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", LoginRequest{Email: email, Password: password})
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", RegisterRequest{Email: email, Password: password, Name: name})
}

// TelegramAuth performs the Mini-App silent login.
func (c *Client) TelegramAuth(ctx context.Context, initData string, user *telegram.User) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/telegram", TelegramAuthRequest{TelegramInitData: initData, User: user})
}

// TelegramWidgetAuth signs in with a browser Login Widget payload.
func (c *Client) TelegramWidgetAuth(ctx context.Context, data *telegram.LoginWidgetData) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/telegram/login", TelegramWidgetRequest{
		TelegramID: data.ID,
		Username:   data.Username,
		FirstName:  data.FirstName,
		LastName:   data.LastName,
		PhotoURL:   data.PhotoURL,
		AuthDate:   data.AuthDate,
		Hash:       data.Hash,
	})
}

// RequestPasswordReset asks the server to mail a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/request-password-reset", "", PasswordResetRequest{Email: email}, nil)
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.do(ctx, http.MethodPost, "/auth/reset-password", "", ResetPasswordRequest{Token: token, NewPassword: newPassword}, nil)
}

// Me returns the user the bearer token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*RemoteUser, error) {
	var u RemoteUser
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, ErrEmptyToken
	}
	return &resp, nil
}

// do sends one request. A non-empty token is sent as a bearer credential.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("api request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			c.limiter.SetRetryAfter(time.Duration(secs) * time.Second)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
