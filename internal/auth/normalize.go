package auth

import (
	"strconv"

	"github.com/blockedby/finlog/internal/apiclient"
	"github.com/blockedby/finlog/internal/models"
	"github.com/blockedby/finlog/internal/telegram"
)

// normalizeUser converts the server user into the session user. Fields the
// server omitted are filled from the Telegram identity when one is known.
func normalizeUser(remote apiclient.RemoteUser, tg *telegram.User) *models.User {
	u := remote.ToModel()
	if tg == nil {
		return u
	}

	if u.ID == "" && tg.ID != 0 {
		u.ID = strconv.FormatInt(tg.ID, 10)
	}
	if u.FirstName == "" {
		u.FirstName = tg.FirstName
	}
	if u.LastName == "" {
		u.LastName = tg.LastName
	}
	if u.TelegramID == nil && tg.ID != 0 {
		id := tg.ID
		u.TelegramID = &id
	}
	if u.TelegramUsername == "" {
		u.TelegramUsername = tg.Username
	}
	if u.TelegramPhotoURL == "" {
		u.TelegramPhotoURL = tg.PhotoURL
	}
	return u
}

// refreshedUser merges a user reloaded from the server into the current
// one. Telegram fields the server omits are kept, and so is the id when the
// server sends none.
func refreshedUser(prev, fresh *models.User) *models.User {
	if prev == nil {
		return fresh
	}
	if fresh.ID == "" {
		fresh.ID = prev.ID
	}
	if fresh.TelegramID == nil && prev.TelegramID != nil {
		id := *prev.TelegramID
		fresh.TelegramID = &id
	}
	if fresh.TelegramUsername == "" {
		fresh.TelegramUsername = prev.TelegramUsername
	}
	if fresh.TelegramPhotoURL == "" {
		fresh.TelegramPhotoURL = prev.TelegramPhotoURL
	}
	return fresh
}
