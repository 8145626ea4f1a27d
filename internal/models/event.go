package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthOp names an auth controller operation.
type AuthOp string

// AuthOp constants define the operations that publish events.
const (
	OpRestore        AuthOp = "restore"
	OpLogin          AuthOp = "login"
	OpRegister       AuthOp = "register"
	OpTelegramWebApp AuthOp = "telegram_webapp"
	OpTelegramWidget AuthOp = "telegram_widget"
	OpForgotPassword AuthOp = "forgot_password"
	OpResetPassword  AuthOp = "reset_password"
	OpRefresh        AuthOp = "refresh"
	OpLogout         AuthOp = "logout"
)

// Outcome constants describe how an operation settled.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
	OutcomeExpired = "expired"
)

// AuthEvent is published once per settled auth operation.
type AuthEvent struct {
	ID      uuid.UUID `json:"id"`
	Op      AuthOp    `json:"op"`
	Outcome string    `json:"outcome"`
	UserID  string    `json:"user_id,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// NewAuthEvent creates an event stamped with a fresh id and the current time.
func NewAuthEvent(op AuthOp, outcome, userID string) AuthEvent {
	return AuthEvent{
		ID:      uuid.New(),
		Op:      op,
		Outcome: outcome,
		UserID:  userID,
		At:      time.Now().UTC(),
	}
}
