package handlers

import (
	"net/http"
	"strconv"

	"github.com/blockedby/finlog/internal/guard"
	"github.com/blockedby/finlog/internal/logger"
	"github.com/blockedby/finlog/internal/telegram"
	"github.com/blockedby/finlog/internal/web"
)

// ControllerFunc returns the controller of the browser behind r, or nil
// when the request carries none.
type ControllerFunc func(r *http.Request) AuthController

// Fixed serves every request from ctrl.
func Fixed(ctrl AuthController) ControllerFunc {
	return func(*http.Request) AuthController { return ctrl }
}

// renderer holds what every HTML handler needs.
type renderer struct {
	templates  *web.TemplateEngine
	controller ControllerFunc
}

// ctrl resolves the request's controller and answers 503 when there is none.
func (rd renderer) ctrl(w http.ResponseWriter, r *http.Request) (AuthController, bool) {
	if rd.controller != nil {
		if c := rd.controller(r); c != nil {
			return c, true
		}
	}
	http.Error(w, "no client session", http.StatusServiceUnavailable)
	return nil, false
}

// pageData is the base template data. Templates read Session and Flow on
// every page.
func pageData(ctrl AuthController, title, active string) map[string]interface{} {
	flow := ctrl.FlowState()
	return map[string]interface{}{
		"Title":      title,
		"ActivePage": active,
		"Session":    ctrl.Session(),
		"Flow":       flow,
		"Error":      flow.Error,
	}
}

func (rd renderer) render(w http.ResponseWriter, r *http.Request, page string, data map[string]interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if r.Header.Get("HX-Request") == "true" {
		if err := rd.templates.RenderContent(w, page, data); err != nil {
			http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err := rd.templates.Render(w, page, data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// PagesHandler handles HTML page requests
type PagesHandler struct {
	renderer
	botUsername string
}

// NewPagesHandler creates a new pages handler. botUsername enables the
// Telegram login widget on the login page.
func NewPagesHandler(templates *web.TemplateEngine, ctrl ControllerFunc, botUsername string) *PagesHandler {
	return &PagesHandler{
		renderer:    renderer{templates: templates, controller: ctrl},
		botUsername: botUsername,
	}
}

// Landing renders the public landing page.
func (h *PagesHandler) Landing(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	h.render(w, r, "landing", pageData(ctrl, "Welcome", "landing"))
}

// Telegram is the Mini-App entry. Init-data forwarded in a header is
// observed right away; otherwise the page reports the bridge itself.
func (h *PagesHandler) Telegram(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	env := telegram.EnvironmentFromRequest(r)
	if env.Bridge != nil {
		if _, err := ctrl.ObserveTelegram(r.Context(), env); err != nil {
			logger.Get().Component("pages").Debug().Err(err).Msg("telegram auto-login")
		}
	}

	if ctrl.Session().IsAuthenticated {
		http.Redirect(w, r, env.LandingPath(), http.StatusFound)
		return
	}

	h.render(w, r, "telegram", pageData(ctrl, "Telegram", "telegram"))
}

// Login renders the login form.
func (h *PagesHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	data := pageData(ctrl, "Log in", "login")
	data["BotUsername"] = h.botUsername
	h.render(w, r, "login", data)
}

// Register renders the sign-up form.
func (h *PagesHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	h.render(w, r, "register", pageData(ctrl, "Sign up", "register"))
}

// ForgotPassword renders the password reset request form.
func (h *PagesHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	h.render(w, r, "forgot-password", pageData(ctrl, "Reset password", "forgot-password"))
}

// ResetPassword renders the new password form for the token in the link.
func (h *PagesHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	data := pageData(ctrl, "New password", "reset-password")
	data["ResetToken"] = r.URL.Query().Get("token")
	h.render(w, r, "reset-password", data)
}

// Dashboard renders the dashboard page with the user freshly loaded from
// the server. A failed reload keeps the stored profile.
func (h *PagesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	if err := ctrl.RefreshUser(r.Context()); err != nil {
		logger.Get().Component("pages").Debug().Err(err).Msg("refresh user")
	}
	if !ctrl.Session().IsAuthenticated {
		http.Redirect(w, r, guard.LandingPath, http.StatusFound)
		return
	}
	h.render(w, r, "dashboard", pageData(ctrl, "Dashboard", "dashboard"))
}

// Expenses renders the expenses page, focused on ?id= when given.
func (h *PagesHandler) Expenses(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	data := pageData(ctrl, "Expenses", "expenses")
	data["ItemID"] = itemID(r)
	h.render(w, r, "expenses", data)
}

// Schedules renders the recurring schedules page.
func (h *PagesHandler) Schedules(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	data := pageData(ctrl, "Schedules", "schedules")
	data["ItemID"] = itemID(r)
	h.render(w, r, "schedules", data)
}

// Analytics renders the analytics page.
func (h *PagesHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	h.render(w, r, "analytics", pageData(ctrl, "Analytics", "analytics"))
}

// Loading is the neutral view shown while the session is resolving. It
// refreshes itself until the guard lets the request through.
func (h *PagesHandler) Loading(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	w.Header().Set("Refresh", "1")
	h.render(w, r, "loading", pageData(ctrl, "Loading", "loading"))
}

// itemID returns the numeric id query parameter or 0.
func itemID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
