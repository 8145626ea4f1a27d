package api

import (
	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/models"
	"github.com/blockedby/finlog/internal/session"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SessionResponse is the public part of the session. The token is never
// exposed.
type SessionResponse struct {
	IsAuthenticated bool            `json:"isAuthenticated"`
	AuthType        models.AuthType `json:"authType,omitempty"`
	User            *models.User    `json:"user,omitempty"`
}

// StateResponse combines session and flow state.
type StateResponse struct {
	Session SessionResponse `json:"session"`
	State   auth.FlowState  `json:"state"`
	// Redirect is set when the client should navigate.
	Redirect string `json:"redirect,omitempty"`
}

// TelegramResponse is returned by the Mini-App sign-in endpoints.
type TelegramResponse struct {
	StateResponse
	// Attempted reports whether a sign-in request was issued.
	Attempted bool `json:"attempted"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
}

// ForgotPasswordRequest is the body of POST /auth/password/forgot
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

// ResetPasswordRequest is the body of POST /auth/password/reset
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// stateFrom builds a StateResponse from snapshots.
func stateFrom(st session.State, fs auth.FlowState) StateResponse {
	return StateResponse{
		Session: SessionResponse{
			IsAuthenticated: st.IsAuthenticated,
			AuthType:        st.AuthType,
			User:            st.User,
		},
		State: fs,
	}
}
