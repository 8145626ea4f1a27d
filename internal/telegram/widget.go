package telegram

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// LoginWidgetData is the payload the browser Login Widget hands to the
// page after the user confirms.
type LoginWidgetData struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// ParseLoginWidget reads widget data from the redirect query.
func ParseLoginWidget(v url.Values) (*LoginWidgetData, error) {
	id, err := strconv.ParseInt(v.Get("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid telegram id %q", v.Get("id"))
	}

	authDate, err := strconv.ParseInt(v.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid auth_date %q", v.Get("auth_date"))
	}

	d := &LoginWidgetData{
		ID:        id,
		FirstName: v.Get("first_name"),
		LastName:  v.Get("last_name"),
		Username:  v.Get("username"),
		PhotoURL:  v.Get("photo_url"),
		AuthDate:  authDate,
		Hash:      v.Get("hash"),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks that the fields the server needs are present.
func (d *LoginWidgetData) Validate() error {
	if d.ID == 0 {
		return errors.New("telegram id is required")
	}
	if d.Hash == "" {
		return errors.New("hash is required")
	}
	if d.AuthDate == 0 {
		return errors.New("auth_date is required")
	}
	return nil
}

// User converts the widget payload into a host user identity.
func (d *LoginWidgetData) User() *User {
	return &User{
		ID:        d.ID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Username:  d.Username,
		PhotoURL:  d.PhotoURL,
	}
}
