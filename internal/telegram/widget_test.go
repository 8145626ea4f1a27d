package telegram

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLoginWidget(t *testing.T) {
	v := url.Values{
		"id":         {"42"},
		"first_name": {"Ann"},
		"username":   {"ann"},
		"photo_url":  {"https://t.me/i/userpic/ann.jpg"},
		"auth_date":  {"1700000000"},
		"hash":       {"deadbeef"},
	}

	d, err := ParseLoginWidget(v)
	require.NoError(t, err)
	assert.Equal(t, int64(42), d.ID)
	assert.Equal(t, "Ann", d.FirstName)
	assert.Equal(t, int64(1700000000), d.AuthDate)

	u := d.User()
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, "ann", u.Username)
	assert.Equal(t, "https://t.me/i/userpic/ann.jpg", u.PhotoURL)
}

func TestParseLoginWidget_Invalid(t *testing.T) {
	tests := []struct {
		name string
		v    url.Values
	}{
		{"missing id", url.Values{"auth_date": {"1"}, "hash": {"h"}}},
		{"zero id", url.Values{"id": {"0"}, "auth_date": {"1"}, "hash": {"h"}}},
		{"bad auth date", url.Values{"id": {"1"}, "auth_date": {"x"}, "hash": {"h"}}},
		{"missing hash", url.Values{"id": {"1"}, "auth_date": {"1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLoginWidget(tt.v)
			assert.Error(t, err)
		})
	}
}
