// Package auth orchestrates sign-in, sign-out, password reset and the
// Telegram Mini-App silent login on top of the session store.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/blockedby/finlog/internal/apiclient"
	"github.com/blockedby/finlog/internal/guard"
	"github.com/blockedby/finlog/internal/logger"
	"github.com/blockedby/finlog/internal/metrics"
	"github.com/blockedby/finlog/internal/models"
	"github.com/blockedby/finlog/internal/session"
	"github.com/blockedby/finlog/internal/telegram"
)

// API is the remote API boundary the controller talks to.
type API interface {
	Login(ctx context.Context, email, password string) (*apiclient.AuthResponse, error)
	Register(ctx context.Context, email, password, name string) (*apiclient.AuthResponse, error)
	TelegramAuth(ctx context.Context, initData string, user *telegram.User) (*apiclient.AuthResponse, error)
	TelegramWidgetAuth(ctx context.Context, data *telegram.LoginWidgetData) (*apiclient.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, token string) (*apiclient.RemoteUser, error)
}

// Navigator moves the client to another page.
type Navigator interface {
	Navigate(path string)
}

// EventPublisher receives one event per settled operation.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event models.AuthEvent) error
}

// FlowState is the transient UI state of the auth flow.
type FlowState struct {
	Phase     Phase  `json:"phase"`
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
	IsWebApp  bool   `json:"isWebApp"`

	// ResetRequested is set after a forgot-password request succeeded.
	ResetRequested bool `json:"resetRequested"`
	// PasswordReset is set after a new password was accepted.
	PasswordReset bool `json:"passwordReset"`
}

// operation is one in-flight request. The controller only applies the
// outcome of the operation it still considers current.
type operation struct {
	key string
	gen uint64
}

// Controller is the auth state machine.
type Controller struct {
	api       API
	store     *session.Store
	nav       Navigator
	publisher EventPublisher
	metrics   *metrics.AuthMetrics
	log       *logger.Logger
	now       func() time.Time

	refreshEvery time.Duration

	group singleflight.Group

	mu       sync.Mutex
	phase    Phase
	flow     FlowState
	starting bool
	started  bool
	op       *operation
	// lastAttempt identifies the (telegram user, init-data) pair of the
	// last automatic login
	lastAttempt string
	lastRefresh time.Time
	// counted is whether this session is included in the signed-in gauge
	counted bool

	subMu   sync.Mutex
	subs    map[int]func(FlowState)
	nextSub int
}

// Option configures a Controller.
type Option func(*Controller)

// WithNavigator sets where successful sign-ins and logouts navigate.
func WithNavigator(n Navigator) Option {
	return func(c *Controller) {
		c.nav = n
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.AuthMetrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) {
		c.log = l.Component("auth")
	}
}

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithRefreshInterval sets how often RefreshUser reaches the server.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.refreshEvery = d
	}
}

// NewController creates a controller. It reports IsLoading until Start has
// resolved the cached session.
func NewController(api API, store *session.Store, opts ...Option) *Controller {
	c := &Controller{
		api:   api,
		store: store,
		log:   logger.Nop(),
		now:   time.Now,
		flow:  FlowState{IsLoading: true},

		refreshEvery: time.Minute,
		subs:  make(map[int]func(FlowState)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start resolves the cached session. A token whose exp claim is in the past
// or that cannot be decoded logs the session out without surfacing an
// error; a valid one authenticates without a network call. When env is
// given it also decides isWebApp and then evaluates the Telegram silent
// login. Calling Start again is a no-op.
func (c *Controller) Start(ctx context.Context, env *telegram.Environment) {
	c.mu.Lock()
	if c.started || c.starting {
		c.mu.Unlock()
		return
	}
	c.starting = true
	c.mu.Unlock()

	outcome := c.restore(ctx)

	isWebApp := false
	if env != nil {
		d := telegram.Inspect(*env)
		c.metrics.RecordDetection(d.Matched)
		isWebApp = d.IsHost()
	}

	st := c.store.GetState()

	c.mu.Lock()
	if st.IsAuthenticated && c.phase == PhaseUnauthenticated {
		if err := c.transitionLocked(PhaseAuthenticated); err != nil {
			c.log.Error().Err(err).Msg("restore transition rejected")
		}
	}
	c.started = true
	c.flow.IsLoading = c.op != nil
	c.flow.IsWebApp = c.flow.IsWebApp || isWebApp
	c.mu.Unlock()

	c.countSession(st.IsAuthenticated)
	c.record(ctx, models.OpRestore, outcome, userID(st.User), "")
	c.notify()

	if env != nil {
		_, _ = c.ObserveTelegram(ctx, *env)
	}
}

// restore validates the durable record before the store exposes it, so
// listeners never see an expired or malformed session as signed in. An
// unusable record is purged; a failed read is left for the next start.
func (c *Controller) restore(ctx context.Context) string {
	gen := c.store.Generation()
	rec, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNoRecord):
		return models.OutcomeSuccess
	case errors.Is(err, session.ErrCorruptRecord):
		c.log.Warn().Err(err).Msg("cached session corrupt, logging out")
		c.store.Logout()
		return models.OutcomeFailure
	case err != nil:
		c.log.Warn().Err(err).Msg("cached session unreadable, starting signed out")
		return models.OutcomeFailure
	}

	if rec.Token == "" || rec.User == nil || rec.User.ID == "" {
		c.log.Info().Msg("cached session incomplete, logging out")
		c.store.Logout()
		return models.OutcomeFailure
	}

	exp, err := tokenExpiry(rec.Token)
	if err != nil {
		c.log.Info().Err(err).Msg("cached token malformed, logging out")
		c.store.Logout()
		return models.OutcomeFailure
	}
	if !exp.After(c.now()) {
		c.log.Info().Time("exp", exp).Msg("cached token expired, logging out")
		c.store.Logout()
		return models.OutcomeExpired
	}

	if !c.store.Adopt(gen, *rec) {
		c.log.Info().Msg("logged out during restore, cached session dropped")
		return models.OutcomeStale
	}

	c.log.Debug().Str("user_id", rec.User.ID).Time("exp", exp).Msg("session restored")
	return models.OutcomeSuccess
}

// ObserveTelegram evaluates the silent login trigger for env. It fires only
// after Start, while signed out and idle, when env is a Telegram host whose
// bridge carries both a user and init-data, and when that pair differs from
// the last one tried. A session signed in as a different Telegram account
// is ended first. It reports whether a request was issued.
func (c *Controller) ObserveTelegram(ctx context.Context, env telegram.Environment) (bool, error) {
	isHost := telegram.IsHost(env)
	tgUser, initData, hasIdentity := env.Identity()
	current := c.store.GetState()

	c.mu.Lock()
	if isHost {
		c.flow.IsWebApp = true
	}
	if c.started && c.phase == PhaseAuthenticated && c.op == nil && isHost && hasIdentity &&
		otherTelegramAccount(current.User, tgUser) {
		c.mu.Unlock()
		c.log.Info().Int64("telegram_id", tgUser.ID).Msg("telegram account changed, ending session")
		c.logout(ctx, false)
		c.mu.Lock()
	}
	if !c.started || c.phase != PhaseUnauthenticated || c.op != nil || !isHost || !hasIdentity {
		c.mu.Unlock()
		return false, nil
	}
	key := attemptKey(tgUser, initData)
	if key == c.lastAttempt {
		c.mu.Unlock()
		return false, nil
	}
	c.lastAttempt = key
	op, err := c.beginLocked("telegram:"+key, true)
	c.mu.Unlock()
	if err != nil {
		return false, err
	}
	c.notify()

	c.log.Info().Int64("telegram_id", tgUser.ID).Msg("telegram silent login")

	landing := env.LandingPath()

	start := time.Now()
	resp, err := c.api.TelegramAuth(ctx, initData, tgUser)
	c.metrics.ObserveDuration(string(models.OpTelegramWebApp), start)

	return true, c.settleSignIn(ctx, op, models.OpTelegramWebApp, models.AuthTypeTelegramWebApp, resp, err, tgUser, landing)
}

// RetryTelegram forgets the last attempted pair and evaluates the trigger
// again. It backs an explicit "try again" action.
func (c *Controller) RetryTelegram(ctx context.Context, env telegram.Environment) (bool, error) {
	c.mu.Lock()
	c.lastAttempt = ""
	c.mu.Unlock()
	return c.ObserveTelegram(ctx, env)
}

// Login signs in with email and password.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return c.reject(models.OpLogin, "Email and password are required")
	}
	return c.signIn(ctx, models.OpLogin, credentialKey("login", email, password), models.AuthTypePassword, nil,
		func(ctx context.Context) (*apiclient.AuthResponse, error) {
			return c.api.Login(ctx, email, password)
		})
}

// Register creates an account and signs in.
func (c *Controller) Register(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return c.reject(models.OpRegister, "Email and password are required")
	}
	return c.signIn(ctx, models.OpRegister, credentialKey("register", email, password), models.AuthTypePassword, nil,
		func(ctx context.Context) (*apiclient.AuthResponse, error) {
			return c.api.Register(ctx, email, password, strings.TrimSpace(name))
		})
}

// TelegramWidgetLogin signs in with a browser Login Widget payload.
func (c *Controller) TelegramWidgetLogin(ctx context.Context, data *telegram.LoginWidgetData) error {
	if data == nil || data.Validate() != nil {
		return c.reject(models.OpTelegramWidget, "Telegram login data is incomplete")
	}
	return c.signIn(ctx, models.OpTelegramWidget, "widget:"+strconv.FormatInt(data.ID, 10), models.AuthTypeTelegramWidget, data.User(),
		func(ctx context.Context) (*apiclient.AuthResponse, error) {
			return c.api.TelegramWidgetAuth(ctx, data)
		})
}

// ForgotPassword asks the server to mail a reset link and sets
// ResetRequested on success.
func (c *Controller) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return c.reject(models.OpForgotPassword, "Email is required")
	}
	return c.submit(ctx, models.OpForgotPassword, "forgot:"+strings.ToLower(email),
		func(ctx context.Context) error { return c.api.RequestPasswordReset(ctx, email) },
		func(f *FlowState) { f.ResetRequested = true })
}

// ResetPassword sets a new password with a reset token and sets
// PasswordReset on success.
func (c *Controller) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return c.reject(models.OpResetPassword, "Reset token and new password are required")
	}
	return c.submit(ctx, models.OpResetPassword, "reset:"+token,
		func(ctx context.Context) error { return c.api.ResetPassword(ctx, token, newPassword) },
		func(f *FlowState) { f.PasswordReset = true })
}

// Logout ends the session from any state. Responses still in flight are
// discarded when they arrive.
func (c *Controller) Logout(ctx context.Context) {
	c.logout(ctx, true)
}

// Close releases what the controller holds outside itself. It is called
// when the client is dropped from memory; the durable session is kept.
func (c *Controller) Close() {
	c.countSession(false)
}

// RefreshUser reloads the signed-in user with the bearer token. It reaches
// the server at most once per refresh interval and ends the session when
// the server rejects the token.
func (c *Controller) RefreshUser(ctx context.Context) error {
	gen := c.store.Generation()
	st := c.store.GetState()

	c.mu.Lock()
	if c.phase != PhaseAuthenticated || c.op != nil || !st.IsAuthenticated ||
		(!c.lastRefresh.IsZero() && c.now().Sub(c.lastRefresh) < c.refreshEvery) {
		c.mu.Unlock()
		return nil
	}
	c.lastRefresh = c.now()
	c.mu.Unlock()

	start := time.Now()
	remote, err := c.api.Me(ctx, st.Token)
	c.metrics.ObserveDuration(string(models.OpRefresh), start)

	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			c.log.Info().Str("user_id", st.User.ID).Msg("token rejected by server, logging out")
			c.record(ctx, models.OpRefresh, models.OutcomeExpired, st.User.ID, errorMessage(err))
			c.logout(ctx, true)
			return err
		}
		c.log.Warn().Err(err).Msg("user refresh failed")
		c.record(ctx, models.OpRefresh, models.OutcomeFailure, st.User.ID, errorMessage(err))
		return err
	}

	user := refreshedUser(st.User, normalizeUser(*remote, nil))
	if !c.store.Commit(gen, st.Token, user, st.AuthType) {
		c.record(ctx, models.OpRefresh, models.OutcomeStale, user.ID, "")
		return ErrStaleResponse
	}
	c.record(ctx, models.OpRefresh, models.OutcomeSuccess, user.ID, "")
	return nil
}

func (c *Controller) logout(ctx context.Context, navigate bool) {
	prev := c.store.GetState()

	c.mu.Lock()
	if c.phase != PhaseUnauthenticated {
		if err := c.transitionLocked(PhaseUnauthenticated); err != nil {
			c.log.Error().Err(err).Msg("logout transition rejected")
			c.phase = PhaseUnauthenticated
		}
	}
	c.op = nil
	if c.started {
		c.flow.IsLoading = false
	}
	c.flow.Error = ""
	c.flow.ResetRequested = false
	c.flow.PasswordReset = false
	c.lastRefresh = time.Time{}
	c.mu.Unlock()

	c.store.Logout()

	c.countSession(false)
	c.record(ctx, models.OpLogout, models.OutcomeSuccess, userID(prev.User), "")
	c.notify()
	if navigate {
		c.navigate(guard.LandingPath)
	}
}

// FlowState returns a snapshot of the flow state.
func (c *Controller) FlowState() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Session returns the current session snapshot.
func (c *Controller) Session() session.State {
	return c.store.GetState()
}

// GuardView implements guard.Source. Loading covers only the startup
// resolution.
func (c *Controller) GuardView() guard.View {
	st := c.store.GetState()

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	return guard.View{
		IsAuthenticated: st.IsAuthenticated,
		IsLoading:       !started,
		AuthType:        st.AuthType,
	}
}

// Subscribe registers fn to receive the flow state after every change.
func (c *Controller) Subscribe(fn func(FlowState)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// signIn runs one credential exchange. Identical concurrent submissions
// share a single request; a different one gets ErrAuthInProgress.
func (c *Controller) signIn(
	ctx context.Context,
	op models.AuthOp,
	key string,
	authType models.AuthType,
	tgUser *telegram.User,
	call func(context.Context) (*apiclient.AuthResponse, error),
) error {
	_, err, shared := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if c.phase == PhaseAuthenticated {
			c.mu.Unlock()
			return nil, ErrAlreadyAuthenticated
		}
		cur, err := c.beginLocked(key, true)
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		c.notify()

		start := time.Now()
		resp, err := call(ctx)
		c.metrics.ObserveDuration(string(op), start)

		return nil, c.settleSignIn(ctx, cur, op, authType, resp, err, tgUser, guard.HomePath)
	})
	if shared {
		c.log.Debug().Str("op", string(op)).Msg("joined in-flight submission")
	}
	return err
}

// submit runs a request that does not change the session.
func (c *Controller) submit(
	ctx context.Context,
	op models.AuthOp,
	key string,
	call func(context.Context) error,
	onSuccess func(*FlowState),
) error {
	_, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		cur, err := c.beginLocked(key, false)
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		c.notify()

		start := time.Now()
		callErr := call(ctx)
		c.metrics.ObserveDuration(string(op), start)

		c.mu.Lock()
		if c.op != cur {
			c.mu.Unlock()
			c.record(ctx, op, models.OutcomeStale, "", "")
			return nil, ErrStaleResponse
		}
		c.op = nil
		c.flow.IsLoading = false
		if callErr != nil {
			c.flow.Error = errorMessage(callErr)
		} else {
			onSuccess(&c.flow)
		}
		c.mu.Unlock()
		c.notify()

		if callErr != nil {
			c.log.Warn().Err(callErr).Str("op", string(op)).Msg("auth request failed")
			c.record(ctx, op, models.OutcomeFailure, "", errorMessage(callErr))
			return nil, callErr
		}
		c.record(ctx, op, models.OutcomeSuccess, "", "")
		return nil, nil
	})
	return err
}

// beginLocked marks an operation as in flight. Callers hold c.mu.
func (c *Controller) beginLocked(key string, changesPhase bool) (*operation, error) {
	if c.op != nil {
		return nil, ErrAuthInProgress
	}
	if changesPhase {
		if err := c.transitionLocked(PhaseAuthenticating); err != nil {
			return nil, err
		}
	}
	cur := &operation{key: key, gen: c.store.Generation()}
	c.op = cur
	c.flow.IsLoading = true
	c.flow.Error = ""
	c.flow.ResetRequested = false
	c.flow.PasswordReset = false
	return cur, nil
}

// settleSignIn applies the outcome of a credential exchange. A response
// for a session that was logged out in the meantime is dropped.
func (c *Controller) settleSignIn(
	ctx context.Context,
	cur *operation,
	op models.AuthOp,
	authType models.AuthType,
	resp *apiclient.AuthResponse,
	callErr error,
	tgUser *telegram.User,
	landing string,
) error {
	if callErr == nil && (resp == nil || resp.Token == "") {
		callErr = apiclient.ErrEmptyToken
	}

	c.mu.Lock()
	current := c.op == cur
	c.mu.Unlock()
	if !current {
		c.log.Info().Str("op", string(op)).Msg("discarding response after logout")
		c.record(ctx, op, models.OutcomeStale, "", "")
		return ErrStaleResponse
	}

	if callErr != nil {
		msg := errorMessage(callErr)
		c.mu.Lock()
		if c.op == cur {
			c.op = nil
			c.flow.IsLoading = false
			c.flow.Error = msg
			if err := c.transitionLocked(PhaseUnauthenticated); err != nil {
				c.log.Error().Err(err).Msg("failure transition rejected")
			}
		}
		c.mu.Unlock()
		c.notify()

		c.log.Warn().Err(callErr).Str("op", string(op)).Msg("sign-in failed")
		c.record(ctx, op, models.OutcomeFailure, "", msg)
		return callErr
	}

	user := normalizeUser(resp.User, tgUser)
	if !c.store.Commit(cur.gen, resp.Token, user, authType) {
		c.log.Info().Str("op", string(op)).Msg("discarding response after logout")
		c.record(ctx, op, models.OutcomeStale, user.ID, "")
		return ErrStaleResponse
	}

	c.mu.Lock()
	stillCurrent := c.op == cur
	if stillCurrent {
		c.op = nil
		c.flow.IsLoading = false
		c.flow.Error = ""
		if err := c.transitionLocked(PhaseAuthenticated); err != nil {
			c.log.Error().Err(err).Msg("success transition rejected")
		}
	}
	c.mu.Unlock()
	if !stillCurrent {
		// logout won the race after the commit and already cleared the store
		c.record(ctx, op, models.OutcomeStale, user.ID, "")
		return ErrStaleResponse
	}

	c.countSession(true)
	c.log.Info().Str("op", string(op)).Str("user_id", user.ID).Msg("signed in")
	c.record(ctx, op, models.OutcomeSuccess, user.ID, "")
	c.notify()
	c.navigate(landing)
	return nil
}

// reject records a submission refused before reaching the server.
func (c *Controller) reject(op models.AuthOp, msg string) error {
	c.mu.Lock()
	if c.op == nil {
		c.flow.Error = msg
	}
	c.mu.Unlock()
	c.notify()
	c.metrics.RecordAttempt(string(op), models.OutcomeFailure)
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// transitionLocked moves the state machine. Callers hold c.mu.
func (c *Controller) transitionLocked(to Phase) error {
	if err := ValidateTransition(c.phase, to); err != nil {
		return err
	}
	c.log.Debug().Stringer("from", c.phase).Stringer("to", to).Msg("auth phase changed")
	c.phase = to
	c.flow.Phase = to
	return nil
}

func (c *Controller) navigate(path string) {
	if c.nav != nil {
		c.nav.Navigate(path)
	}
}

// record counts the outcome and publishes the event.
func (c *Controller) record(ctx context.Context, op models.AuthOp, outcome, uid, errMsg string) {
	c.metrics.RecordAttempt(string(op), outcome)
	c.publish(ctx, op, outcome, uid, errMsg)
}

func (c *Controller) publish(ctx context.Context, op models.AuthOp, outcome, uid, errMsg string) {
	if c.publisher == nil {
		return
	}
	ev := models.NewAuthEvent(op, outcome, uid)
	ev.Error = errMsg
	// the caller's context may already be done for late responses
	if err := c.publisher.PublishAuthEvent(context.WithoutCancel(ctx), ev); err != nil {
		c.log.Warn().Err(err).Str("op", string(op)).Msg("failed to publish auth event")
	}
}

func (c *Controller) notify() {
	state := c.FlowState()

	c.subMu.Lock()
	fns := make([]func(FlowState), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// countSession keeps the signed-in gauge in step with this controller.
func (c *Controller) countSession(signedIn bool) {
	c.mu.Lock()
	changed := c.counted != signedIn
	c.counted = signedIn
	c.mu.Unlock()

	switch {
	case !changed:
	case signedIn:
		c.metrics.SessionSignedIn()
	default:
		c.metrics.SessionSignedOut()
	}
}

// credentialKey collapses identical submissions. The password is part of
// the key so a corrected resubmission never shares a failed attempt.
func credentialKey(op, email, password string) string {
	sum := sha256.Sum256([]byte(password))
	return op + ":" + strings.ToLower(email) + ":" + hex.EncodeToString(sum[:8])
}

// otherTelegramAccount reports whether u is bound to a Telegram account
// other than tg.
func otherTelegramAccount(u *models.User, tg *telegram.User) bool {
	return u != nil && u.TelegramID != nil && tg != nil && *u.TelegramID != tg.ID
}

// attemptKey identifies an auto-login input pair without keeping the raw
// init-data around.
func attemptKey(u *telegram.User, initData string) string {
	sum := sha256.Sum256([]byte(initData))
	return strconv.FormatInt(u.ID, 10) + ":" + hex.EncodeToString(sum[:8])
}

func userID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// IsUserError reports whether err is a failure the user can fix by
// changing the submission, as opposed to a conflict with flow state.
func IsUserError(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrAuthInProgress) &&
		!errors.Is(err, ErrAlreadyAuthenticated) &&
		!errors.Is(err, ErrStaleResponse)
}
