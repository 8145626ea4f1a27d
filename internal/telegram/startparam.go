package telegram

import (
	"net/url"
	"strings"
)

// Page is a client view a deep link can open.
type Page string

// Pages reachable from a start param.
const (
	PageDashboard Page = "dashboard"
	PageExpenses  Page = "expenses"
	PageSchedules Page = "schedules"
	PageAnalytics Page = "analytics"
)

var pageAliases = map[string]Page{
	"dashboard": PageDashboard,
	"home":      PageDashboard,
	"expenses":  PageExpenses,
	"expense":   PageExpenses,
	"schedules": PageSchedules,
	"schedule":  PageSchedules,
	"analytics": PageAnalytics,
	"stats":     PageAnalytics,
}

// maxStartParamLen is the limit Telegram puts on startapp values.
const maxStartParamLen = 64

// StartParam is a parsed deep link parameter of the form "<page>" or
// "<page>_<id>".
type StartParam struct {
	Raw  string
	Page Page
	ID   string
}

// ParseStartParam never fails: anything it does not recognize opens the
// dashboard.
func ParseStartParam(s string) StartParam {
	sp := StartParam{Raw: s, Page: PageDashboard}
	if s == "" || len(s) > maxStartParamLen || !validStartParam(s) {
		return sp
	}

	name, id, _ := strings.Cut(s, "_")
	page, ok := pageAliases[strings.ToLower(name)]
	if !ok {
		return sp
	}

	sp.Page = page
	sp.ID = id
	return sp
}

// Path returns the client route the start param opens.
func (sp StartParam) Path() string {
	path := "/" + string(sp.Page)
	if sp.Page == "" {
		path = "/" + string(PageDashboard)
	}
	if sp.ID != "" && sp.Page != PageDashboard {
		path += "?id=" + url.QueryEscape(sp.ID)
	}
	return path
}

func validStartParam(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// StartAppLink builds the t.me deep link that opens the Mini-App, optionally
// with a start param.
func StartAppLink(bot, app, param string) string {
	link := "https://t.me/" + strings.TrimPrefix(bot, "@") + "/" + app
	if param != "" {
		link += "?startapp=" + url.QueryEscape(param)
	}
	return link
}
