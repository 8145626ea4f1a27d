package telegram

import (
	"net/http"
	"net/url"
	"strings"
)

// Header names used by the Mini-App page to forward host data on API calls.
const (
	HeaderInitData = "X-Telegram-Init-Data"
	HeaderPlatform = "X-Telegram-Platform"
)

// User is the unsafe user identity the host exposes alongside init-data.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Bridge is the host object injected into the Mini-App page. The page
// reports it to the server; a nil Bridge means the object was absent.
type Bridge struct {
	InitData   string `json:"initData"`
	User       *User  `json:"user,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Version    string `json:"version,omitempty"`
	StartParam string `json:"startParam,omitempty"`
}

// present reports whether the bridge looks like a real host object rather
// than the placeholder the web script installs outside Telegram.
func (b *Bridge) present() bool {
	if b == nil {
		return false
	}
	if b.InitData != "" {
		return true
	}
	return b.Platform != "" && b.Platform != "unknown"
}

// Environment is everything the detector may inspect.
type Environment struct {
	Bridge    *Bridge `json:"bridge,omitempty"`
	URL       string  `json:"url"`
	UserAgent string  `json:"userAgent"`
	Referrer  string  `json:"referrer"`
}

// Identity returns the user and init-data pair the bridge carries, or false
// when either half is missing.
func (e Environment) Identity() (*User, string, bool) {
	if e.Bridge == nil || e.Bridge.User == nil || e.Bridge.InitData == "" {
		return nil, "", false
	}
	return e.Bridge.User, e.Bridge.InitData, true
}

// StartParam returns the deep link parameter, preferring the one the bridge
// reports over the startapp query of the page URL.
func (e Environment) StartParam() string {
	if e.Bridge != nil && e.Bridge.StartParam != "" {
		return e.Bridge.StartParam
	}
	if u, err := url.Parse(e.URL); err == nil {
		return u.Query().Get("startapp")
	}
	return ""
}

// LandingPath is the page a successful sign-in from env should open.
func (e Environment) LandingPath() string {
	return ParseStartParam(e.StartParam()).Path()
}

// EnvironmentFromRequest builds an Environment from an incoming request.
// Fragments never reach the server, so host data arrives either through
// the init-data header or through a bridge the page reports explicitly.
func EnvironmentFromRequest(r *http.Request) Environment {
	env := Environment{
		URL:       requestURL(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}

	raw := strings.TrimSpace(r.Header.Get(HeaderInitData))
	if raw == "" {
		return env
	}

	bridge := &Bridge{
		InitData: raw,
		Platform: r.Header.Get(HeaderPlatform),
	}
	if data, err := ParseInitData(raw); err == nil {
		bridge.User = data.User
		bridge.StartParam = data.StartParam
	}
	env.Bridge = bridge
	return env
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
