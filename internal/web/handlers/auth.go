package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/guard"
	"github.com/blockedby/finlog/internal/telegram"
	"github.com/blockedby/finlog/internal/web"
)

// FormsHandler handles the auth form posts of the HTML pages.
type FormsHandler struct {
	renderer
}

// NewFormsHandler creates a new forms handler
func NewFormsHandler(templates *web.TemplateEngine, ctrl ControllerFunc) *FormsHandler {
	return &FormsHandler{renderer: renderer{templates: templates, controller: ctrl}}
}

// Login submits the login form.
func (h *FormsHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))

	err := ctrl.Login(r.Context(), email, r.PostFormValue("password"))
	if h.settled(w, r, err) {
		return
	}

	data := pageData(ctrl, "Log in", "login")
	data["Email"] = email
	data["Error"] = failureText(data, err)
	h.render(w, r, "login", data)
}

// Register submits the sign-up form.
func (h *FormsHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	name := strings.TrimSpace(r.PostFormValue("name"))

	err := ctrl.Register(r.Context(), email, r.PostFormValue("password"), name)
	if h.settled(w, r, err) {
		return
	}

	data := pageData(ctrl, "Sign up", "register")
	data["Email"] = email
	data["Name"] = name
	data["Error"] = failureText(data, err)
	h.render(w, r, "register", data)
}

// ForgotPassword submits a password reset request and shows the outcome.
func (h *FormsHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	err := ctrl.ForgotPassword(r.Context(), strings.TrimSpace(r.PostFormValue("email")))

	data := pageData(ctrl, "Reset password", "forgot-password")
	if err != nil {
		data["Error"] = failureText(data, err)
	}
	h.render(w, r, "forgot-password", data)
}

// ResetPassword submits the new password with the emailed token.
func (h *FormsHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	token := r.PostFormValue("token")

	err := ctrl.ResetPassword(r.Context(), token, r.PostFormValue("password"))

	data := pageData(ctrl, "New password", "reset-password")
	data["ResetToken"] = token
	if err != nil {
		data["Error"] = failureText(data, err)
	}
	h.render(w, r, "reset-password", data)
}

// Logout ends the session and returns to the landing page.
func (h *FormsHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	ctrl.Logout(r.Context())
	http.Redirect(w, r, guard.LandingPath, http.StatusSeeOther)
}

// TelegramCallback receives the browser login widget redirect.
func (h *FormsHandler) TelegramCallback(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.ctrl(w, r)
	if !ok {
		return
	}
	page := pageData(ctrl, "Log in", "login")

	data, err := telegram.ParseLoginWidget(r.URL.Query())
	if err != nil {
		page["Error"] = err.Error()
		h.render(w, r, "login", page)
		return
	}

	err = ctrl.TelegramWidgetLogin(r.Context(), data)
	if h.settled(w, r, err) {
		return
	}

	page = pageData(ctrl, "Log in", "login")
	page["Error"] = failureText(page, err)
	h.render(w, r, "login", page)
}

// settled redirects to the dashboard when a sign-in succeeded or a session
// already exists, and reports whether it did.
func (h *FormsHandler) settled(w http.ResponseWriter, r *http.Request, err error) bool {
	if err != nil && !errors.Is(err, auth.ErrAlreadyAuthenticated) {
		return false
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", guard.HomePath)
		w.WriteHeader(http.StatusOK)
		return true
	}
	http.Redirect(w, r, guard.HomePath, http.StatusSeeOther)
	return true
}

// failureText prefers the message the flow state recorded; conflicts and
// parse errors are not recorded there.
func failureText(data map[string]interface{}, err error) string {
	if msg, _ := data["Error"].(string); msg != "" && auth.IsUserError(err) {
		return msg
	}
	return err.Error()
}
