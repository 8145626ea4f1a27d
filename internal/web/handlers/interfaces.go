package handlers

import (
	"context"

	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/session"
	"github.com/blockedby/finlog/internal/telegram"
)

// AuthController is the part of auth.Controller the pages and forms use.
type AuthController interface {
	FlowState() auth.FlowState
	Session() session.State
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password, name string) error
	TelegramWidgetLogin(ctx context.Context, data *telegram.LoginWidgetData) error
	ObserveTelegram(ctx context.Context, env telegram.Environment) (bool, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context) error
}
