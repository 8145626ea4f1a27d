package auth

import (
	"errors"
	"fmt"
)

// Phase is the state of the auth state machine.
type Phase int

// Phase constants define the auth lifecycle.
const (
	PhaseUnauthenticated Phase = iota
	PhaseAuthenticating
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ErrIllegalTransition is returned for a transition the table does not allow.
var ErrIllegalTransition = errors.New("illegal auth transition")

// Valid transitions:
// unauthenticated → authenticating | authenticated (restored session)
// authenticating → authenticated | unauthenticated
// authenticated → unauthenticated
var transitions = map[Phase][]Phase{
	PhaseUnauthenticated: {PhaseAuthenticating, PhaseAuthenticated},
	PhaseAuthenticating:  {PhaseAuthenticated, PhaseUnauthenticated},
	PhaseAuthenticated:   {PhaseUnauthenticated},
}

// ValidateTransition checks a transition against the table.
func ValidateTransition(from, to Phase) error {
	for _, valid := range transitions[from] {
		if valid == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, from, to)
}
