// Package models defines shared data types for the application.
package models

// AuthType records how the current session was obtained.
type AuthType string

// AuthType constants define the supported sign-in methods.
const (
	AuthTypePassword       AuthType = "password"
	AuthTypeTelegramWebApp AuthType = "telegram_webapp"
	AuthTypeTelegramWidget AuthType = "telegram_widget"
)

// Valid reports whether t is one of the known sign-in methods.
func (t AuthType) Valid() bool {
	switch t {
	case AuthTypePassword, AuthTypeTelegramWebApp, AuthTypeTelegramWidget:
		return true
	}
	return false
}

// User is the identity record kept in the client session.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`

	// telegram specific
	TelegramID       *int64 `json:"telegramId,omitempty"`
	TelegramUsername string `json:"telegramUsername,omitempty"`
	TelegramPhotoURL string `json:"telegramPhotoUrl,omitempty"`
}

// Clone returns a deep copy so snapshots never share pointers with the owner.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.TelegramID != nil {
		id := *u.TelegramID
		c.TelegramID = &id
	}
	return &c
}

// DisplayName returns the best human readable name for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.TelegramUsername != "":
		return "@" + u.TelegramUsername
	default:
		return u.Email
	}
}
