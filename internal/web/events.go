package web

import (
	"encoding/json"

	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/models"
	"github.com/blockedby/finlog/internal/session"
)

// WebSocket event types
const (
	EventSessionChanged = "session.changed"
	EventAuthState      = "auth.state"
	EventNavigate       = "navigate"
)

// WSEvent represents a structured WebSocket message
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// SessionPayload is the payload for EventSessionChanged. The token never
// leaves the process.
type SessionPayload struct {
	IsAuthenticated bool            `json:"isAuthenticated"`
	AuthType        models.AuthType `json:"authType,omitempty"`
	User            *models.User    `json:"user,omitempty"`
}

// NavigatePayload is the payload for EventNavigate.
type NavigatePayload struct {
	Path string `json:"path"`
}

// SessionChangedEvent encodes a session snapshot.
func SessionChangedEvent(st session.State) []byte {
	return encodeEvent(EventSessionChanged, SessionPayload{
		IsAuthenticated: st.IsAuthenticated,
		AuthType:        st.AuthType,
		User:            st.User,
	})
}

// AuthStateEvent encodes the auth flow state.
func AuthStateEvent(fs auth.FlowState) []byte {
	return encodeEvent(EventAuthState, fs)
}

// NavigateEvent tells open pages to move to path.
func NavigateEvent(path string) []byte {
	return encodeEvent(EventNavigate, NavigatePayload{Path: path})
}

func encodeEvent(typ string, payload interface{}) []byte {
	b, _ := json.Marshal(WSEvent{Type: typ, Payload: payload})
	return b
}

// Sender is the part of Hub the event helpers need.
type Sender interface {
	SendTo(owner string, message interface{})
}

// HubNavigator implements auth.Navigator by asking the pages of one
// browser to change location.
type HubNavigator struct {
	hub   Sender
	owner string
}

// NewHubNavigator creates a navigator sending to owner's pages through hub.
func NewHubNavigator(hub Sender, owner string) *HubNavigator {
	return &HubNavigator{hub: hub, owner: owner}
}

// Navigate sends a navigate event.
func (n *HubNavigator) Navigate(path string) {
	n.hub.SendTo(n.owner, NavigateEvent(path))
}

// ForwardState sends every session and flow change to owner's pages. The
// returned function detaches both subscriptions.
func ForwardState(hub Sender, owner string, store *session.Store, ctrl *auth.Controller) func() {
	unsubStore := store.Subscribe(func(st session.State) {
		hub.SendTo(owner, SessionChangedEvent(st))
	})
	unsubFlow := ctrl.Subscribe(func(fs auth.FlowState) {
		hub.SendTo(owner, AuthStateEvent(fs))
	})
	return func() {
		unsubStore()
		unsubFlow()
	}
}
