package telegram

import (
	"net/url"
	"strings"

	"github.com/mssola/useragent"
	"github.com/rs/zerolog"

	"github.com/blockedby/finlog/internal/logger"
)

// Detection check names, in precedence order.
const (
	CheckBridge    = "bridge"
	CheckFragment  = "fragment"
	CheckStartApp  = "startapp"
	CheckUserAgent = "user_agent"
	CheckReferrer  = "referrer"
	CheckWebApp    = "webapp_override"
)

// Detection records the outcome of every host check for diagnostics.
type Detection struct {
	Bridge    bool
	Fragment  bool
	StartApp  bool
	UserAgent bool
	Referrer  bool
	WebApp    bool

	// Matched is the first check that matched, empty when none did.
	Matched string
	// FragmentErr holds a swallowed fragment decode failure.
	FragmentErr error
}

// IsHost reports whether any check matched.
func (d Detection) IsHost() bool {
	return d.Matched != ""
}

// Detect runs all six checks against env. It never fails and makes no
// network calls.
func Detect(env Environment) Detection {
	var d Detection

	d.Bridge = env.Bridge.present()

	// split by hand: a malformed fragment must not hide the query
	rawURL, fragment, _ := strings.Cut(env.URL, "#")
	var query url.Values
	if u, err := url.Parse(rawURL); err == nil {
		query = u.Query()
	}

	if strings.Contains(fragment, "tgWebAppData=") {
		if payload, err := DecodeFragment(fragment); err != nil {
			d.FragmentErr = err
		} else {
			d.Fragment = payload.InitData != ""
		}
	}

	d.StartApp = query.Has("startapp")
	d.UserAgent = strings.Contains(env.UserAgent, "Telegram")

	ref := strings.ToLower(env.Referrer)
	d.Referrer = strings.Contains(ref, "telegram") || strings.Contains(ref, "t.me")

	d.WebApp = query.Has("webapp")

	for _, c := range []struct {
		name string
		ok   bool
	}{
		{CheckBridge, d.Bridge},
		{CheckFragment, d.Fragment},
		{CheckStartApp, d.StartApp},
		{CheckUserAgent, d.UserAgent},
		{CheckReferrer, d.Referrer},
		{CheckWebApp, d.WebApp},
	} {
		if c.ok {
			d.Matched = c.name
			break
		}
	}

	return d
}

// Inspect is Detect plus a debug log line with every check.
func Inspect(env Environment) Detection {
	d := Detect(env)
	logDetection(env, d)
	return d
}

// IsHost reports whether env is a Telegram Mini-App host.
func IsHost(env Environment) bool {
	return Inspect(env).IsHost()
}

func logDetection(env Environment, d Detection) {
	log := logger.Get().Component("telegram")
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}

	ua := useragent.New(env.UserAgent)
	browser, version := ua.Browser()

	ev := log.Debug().
		Bool("bridge", d.Bridge).
		Bool("fragment", d.Fragment).
		Bool("startapp", d.StartApp).
		Bool("user_agent", d.UserAgent).
		Bool("referrer", d.Referrer).
		Bool("webapp", d.WebApp).
		Str("matched", d.Matched).
		Str("browser", browser).
		Str("browser_version", version).
		Str("platform", ua.Platform()).
		Bool("mobile", ua.Mobile())
	if d.FragmentErr != nil {
		ev = ev.AnErr("fragment_err", d.FragmentErr)
	}
	ev.Msg("telegram host detection")
}
