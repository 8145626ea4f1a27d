package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blockedby/finlog/internal/models"
	"github.com/blockedby/finlog/internal/telegram"
)

// FlexID accepts an identifier sent either as a JSON string or a number.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}

// RemoteUser is the user record as the server sends it.
type RemoteUser struct {
	ID               FlexID `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	TelegramID       *int64 `json:"telegramId,omitempty"`
	TelegramUsername string `json:"telegramUsername,omitempty"`
	TelegramPhotoURL string `json:"telegramPhotoUrl,omitempty"`
}

// ToModel converts the server record into the session user. A combined
// "name" is split on the first space when first/last are absent.
func (u RemoteUser) ToModel() *models.User {
	m := &models.User{
		ID:               string(u.ID),
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		TelegramUsername: u.TelegramUsername,
		TelegramPhotoURL: u.TelegramPhotoURL,
	}
	if u.TelegramID != nil {
		id := *u.TelegramID
		m.TelegramID = &id
	}
	if m.FirstName == "" && m.LastName == "" {
		first, last := SplitName(u.Name)
		m.FirstName, m.LastName = first, last
	}
	return m
}

// SplitName splits "A B C" into "A" and "B C".
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// AuthResponse is returned by every sign-in endpoint.
type AuthResponse struct {
	Token string     `json:"token"`
	User  RemoteUser `json:"user"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// TelegramAuthRequest is the body of POST /auth/telegram.
type TelegramAuthRequest struct {
	TelegramInitData string         `json:"telegramInitData"`
	User             *telegram.User `json:"user"`
}

// TelegramWidgetRequest is the body of POST /auth/telegram/login.
type TelegramWidgetRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
	AuthDate   int64  `json:"auth_date"`
	Hash       string `json:"hash"`
}

// PasswordResetRequest is the body of POST /auth/request-password-reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
