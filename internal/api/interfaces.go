package api

import (
	"context"

	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/session"
	"github.com/blockedby/finlog/internal/telegram"
)

// AuthService is what the JSON API needs from the auth controller.
type AuthService interface {
	FlowState() auth.FlowState
	Session() session.State
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password, name string) error
	ObserveTelegram(ctx context.Context, env telegram.Environment) (bool, error)
	RetryTelegram(ctx context.Context, env telegram.Environment) (bool, error)
	TelegramWidgetLogin(ctx context.Context, data *telegram.LoginWidgetData) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Logout(ctx context.Context)
}
