package api

import (
	"errors"
	"net/http"

	"github.com/blockedby/finlog/internal/apiclient"
	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/guard"
	"github.com/blockedby/finlog/internal/telegram"
	"github.com/go-fuego/fuego"
)

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	return HealthResponse{
		Status:  "ok",
		Version: "dev",
	}, nil
}

func (s *Server) getState(c fuego.ContextNoBody) (StateResponse, error) {
	svc, err := s.service(c.Context())
	if err != nil {
		return StateResponse{}, err
	}
	return state(svc, ""), nil
}

func (s *Server) login(c fuego.ContextWithBody[LoginRequest]) (StateResponse, error) {
	svc, err := s.service(c.Context())
	if err != nil {
		return StateResponse{}, err
	}
	body, err := c.Body()
	if err != nil {
		return StateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	if err := svc.Login(c.Context(), body.Email, body.Password); err != nil {
		return StateResponse{}, toHTTPError(err)
	}
	return state(svc, guard.HomePath), nil
}

func (s *Server) register(c fuego.ContextWithBody[RegisterRequest]) (StateResponse, error) {
	svc, err := s.service(c.Context())
	if err != nil {
		return StateResponse{}, err
	}
	body, err := c.Body()
	if err != nil {
		return StateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	if err := svc.Register(c.Context(), body.Email, body.Password, body.Name); err != nil {
		return StateResponse{}, toHTTPError(err)
	}
	return state(svc, guard.HomePath), nil
}

func (s *Server) telegramSignIn(c fuego.ContextWithBody[telegram.Environment]) (TelegramResponse, error) {
	return s.observe(c, false)
}

func (s *Server) telegramRetry(c fuego.ContextWithBody[telegram.Environment]) (TelegramResponse, error) {
	return s.observe(c, true)
}

// observe runs the silent sign-in for the reported environment. A failed
// attempt is not an HTTP error: the page reads state.error and offers a
// retry.
func (s *Server) observe(c fuego.ContextWithBody[telegram.Environment], retry bool) (TelegramResponse, error) {
	svc, err := s.service(c.Context())
	if err != nil {
		return TelegramResponse{}, err
	}
	env, err := c.Body()
	if err != nil {
		return TelegramResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}
	env = withRequestDefaults(env, c.Request())

	observe := svc.ObserveTelegram
	if retry {
		observe = svc.RetryTelegram
	}

	attempted, err := observe(c.Context(), env)
	if err != nil && !auth.IsUserError(err) {
		return TelegramResponse{}, toHTTPError(err)
	}

	redirect := ""
	if svc.Session().IsAuthenticated {
		redirect = env.LandingPath()
	}
	return TelegramResponse{StateResponse: state(svc, redirect), Attempted: attempted}, nil
}

func (s *Server) telegramWidget(c fuego.ContextWithBody[telegram.LoginWidgetData]) (StateResponse, error) {
	svc, err := s.service(c.Context())
	if err != nil {
		return StateResponse{}, err
	}
	body, err := c.Body()
	if err != nil {
		return StateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}
	if err := body.Validate(); err != nil {
		return StateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	if err := svc.TelegramWidgetLogin(c.Context(), &body); err != nil {
		return StateResponse{}, toHTTPError(err)
	}
	return state(svc, guard.HomePath), nil
}

func (s *Server) forgotPassword(c fuego.ContextWithBody[ForgotPasswordRequest]) (StateResponse, error) {
	svc, err := s.service(c.Context())
	if err != nil {
		return StateResponse{}, err
	}
	body, err := c.Body()
	if err != nil {
		return StateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	if err := svc.ForgotPassword(c.Context(), body.Email); err != nil {
		return StateResponse{}, toHTTPError(err)
	}
	return state(svc, ""), nil
}

func (s *Server) resetPassword(c fuego.ContextWithBody[ResetPasswordRequest]) (StateResponse, error) {
	svc, err := s.service(c.Context())
	if err != nil {
		return StateResponse{}, err
	}
	body, err := c.Body()
	if err != nil {
		return StateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	if err := svc.ResetPassword(c.Context(), body.Token, body.NewPassword); err != nil {
		return StateResponse{}, toHTTPError(err)
	}
	return state(svc, ""), nil
}

func (s *Server) logout(c fuego.ContextNoBody) (StateResponse, error) {
	svc, err := s.service(c.Context())
	if err != nil {
		return StateResponse{}, err
	}
	svc.Logout(c.Context())
	return state(svc, guard.LandingPath), nil
}

func state(svc AuthService, redirect string) StateResponse {
	resp := stateFrom(svc.Session(), svc.FlowState())
	resp.Redirect = redirect
	return resp
}

// withRequestDefaults fills what the page left out from the request itself,
// including init-data forwarded in a header.
func withRequestDefaults(env telegram.Environment, r *http.Request) telegram.Environment {
	fromReq := telegram.EnvironmentFromRequest(r)
	if env.Bridge == nil {
		env.Bridge = fromReq.Bridge
	}
	if env.UserAgent == "" {
		env.UserAgent = fromReq.UserAgent
	}
	if env.Referrer == "" {
		env.Referrer = fromReq.Referrer
	}
	if env.URL == "" {
		env.URL = fromReq.URL
	}
	return env
}

// toHTTPError maps controller and remote failures to HTTP errors.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return fuego.BadRequestError{Detail: err.Error()}
	case errors.Is(err, auth.ErrAuthInProgress),
		errors.Is(err, auth.ErrAlreadyAuthenticated),
		errors.Is(err, auth.ErrStaleResponse):
		return fuego.ConflictError{Detail: err.Error()}
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return fuego.UnauthorizedError{Detail: apiErr.Message}
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return fuego.BadRequestError{Detail: apiErr.Message}
		}
		return fuego.HTTPError{Status: http.StatusBadGateway, Detail: apiErr.Message}
	}

	return fuego.HTTPError{Status: http.StatusBadGateway, Detail: err.Error()}
}
