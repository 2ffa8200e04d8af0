package router

import (
	"errors"

	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/session"
)

// SessionState is the read side of the session manager the guards need
type SessionState interface {
	Loading() bool
	Current() (*domain.Identity, error)
}

// Outcome is what a guard decided for a navigation
type Outcome int

const (
	// Render shows the guarded content
	Render Outcome = iota
	// Redirect navigates to Decision.Location instead
	Redirect
	// Placeholder shows neutral content until the initial session check completes
	Placeholder
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case Placeholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a guard
type Decision struct {
	Outcome  Outcome
	Location string
}

func render() Decision { return Decision{Outcome: Render} }

func redirect(location string) Decision {
	return Decision{Outcome: Redirect, Location: location}
}

func placeholder() Decision { return Decision{Outcome: Placeholder} }

// GuestOnly sends logged-in users to their dashboard
func GuestOnly(state SessionState) Decision {
	if state.Loading() {
		return placeholder()
	}
	identity, err := state.Current()
	if err != nil {
		if errors.Is(err, session.ErrSessionLoading) {
			return placeholder()
		}
		return render()
	}
	return redirect(session.DashboardPath(identity.Username))
}

// UserOnly sends anonymous visitors to the login page and keeps users out of
// dashboards that are not theirs. An empty owner skips the ownership check.
func UserOnly(state SessionState, owner string) Decision {
	if state.Loading() {
		return placeholder()
	}
	identity, err := state.Current()
	if err != nil {
		if errors.Is(err, session.ErrSessionLoading) {
			return placeholder()
		}
		return redirect(session.LoginPath)
	}
	if owner != "" && owner != identity.Username {
		return redirect(session.RootPath)
	}
	return render()
}
