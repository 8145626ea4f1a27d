package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ErrEmptyInitData is returned when there is nothing to parse.
var ErrEmptyInitData = errors.New("empty init data")

// InitData is the parsed form of the host-signed init-data string. The
// server verifies the signature; the client only reads it.
type InitData struct {
	QueryID    string
	User       *User
	AuthDate   time.Time
	Hash       string
	StartParam string
	ChatType   string
	Raw        string
}

// ParseInitData decodes an init-data query string.
func ParseInitData(raw string) (*InitData, error) {
	if raw == "" {
		return nil, ErrEmptyInitData
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("decode init data: %w", err)
	}

	data := &InitData{
		QueryID:    values.Get("query_id"),
		Hash:       values.Get("hash"),
		StartParam: values.Get("start_param"),
		ChatType:   values.Get("chat_type"),
		Raw:        raw,
	}

	if s := values.Get("auth_date"); s != "" {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse auth_date: %w", err)
		}
		data.AuthDate = time.Unix(sec, 0).UTC()
	}

	if s := values.Get("user"); s != "" {
		var u User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return nil, fmt.Errorf("parse user: %w", err)
		}
		data.User = &u
	}

	return data, nil
}

// FragmentPayload is what the host appends to the Mini-App URL fragment.
type FragmentPayload struct {
	InitData string
	Platform string
	Version  string
}

// DecodeFragment extracts the host payload from a location fragment such as
// "tgWebAppData=...&tgWebAppVersion=7.0&tgWebAppPlatform=ios". A leading
// "#" is accepted.
func DecodeFragment(fragment string) (*FragmentPayload, error) {
	if len(fragment) > 0 && fragment[0] == '#' {
		fragment = fragment[1:]
	}

	values, err := url.ParseQuery(fragment)
	if err != nil {
		return nil, fmt.Errorf("decode fragment: %w", err)
	}

	return &FragmentPayload{
		InitData: values.Get("tgWebAppData"),
		Platform: values.Get("tgWebAppPlatform"),
		Version:  values.Get("tgWebAppVersion"),
	}, nil
}

// Bridge converts a decoded fragment into a bridge, or nil when it carries
// no init-data.
func (p *FragmentPayload) Bridge() *Bridge {
	if p == nil || p.InitData == "" {
		return nil
	}
	b := &Bridge{
		InitData: p.InitData,
		Platform: p.Platform,
		Version:  p.Version,
	}
	if data, err := ParseInitData(p.InitData); err == nil {
		b.User = data.User
		b.StartParam = data.StartParam
	}
	return b
}
