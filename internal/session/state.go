package session

import "github.com/notepid/hostelhub/internal/api"

// Status is the authentication lifecycle of a session.
type Status int

const (
	StatusUnchecked Status = iota
	StatusChecking
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusUnchecked:
		return "unchecked"
	case StatusChecking:
		return "checking"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// State is an immutable view of the session. User is non-nil iff Status is
// StatusAuthenticated. Confirmed is false while the identity comes from the
// local cache and the server has not vouched for it yet.
type State struct {
	Status    Status
	User      *api.User
	Confirmed bool
}

// Pending reports whether the session outcome is not known yet.
func (s State) Pending() bool {
	return s.Status == StatusUnchecked || s.Status == StatusChecking
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Role is the signed-in user's tier, or the base tier when anonymous.
func (s State) Role() Role {
	if !s.Authenticated() {
		return RoleStudent
	}
	return ParseRole(s.User.Role)
}

// IsManager is true for managers and admins.
func (s State) IsManager() bool {
	return s.Authenticated() && s.Role() >= RoleManager
}

// IsAdmin is true only for admins.
func (s State) IsAdmin() bool {
	return s.Authenticated() && s.Role() == RoleAdmin
}

// Can reports whether the signed-in user holds p.
func (s State) Can(p Permission) bool {
	return s.Authenticated() && s.Role().Can(p)
}
