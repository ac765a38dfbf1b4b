// Package guard decides whether a screen may be shown for the current
// session, and where to send the user when it may not.
package guard

import (
	"net/url"
	"strings"

	"github.com/notepid/hostelhub/internal/session"
)

// Access is the session requirement of a route.
type Access int

const (
	// Public routes render for everyone.
	Public Access = iota
	// Authenticated routes need a session, and Require if set.
	Authenticated
	// GuestOnly routes (login, register) are for anonymous users only.
	GuestOnly
)

// Outcome is the result of evaluating a route.
type Outcome int

const (
	Loading Outcome = iota
	Admit
	RedirectLogin
	RedirectHome
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Admit:
		return "admit"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	case NotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

const (
	LoginPath    = "/login"
	RegisterPath = "/register"
)

// Route is a navigable screen.
type Route struct {
	Path    string
	Title   string
	Access  Access
	Require session.Permission
}

// Decision tells the caller what to render. Target is set for redirects;
// Next carries the originally requested path on RedirectLogin.
type Decision struct {
	Outcome Outcome
	Target  string
	Next    string
}

// HomeFor returns the landing route of a role.
func HomeFor(r session.Role) string {
	switch r {
	case session.RoleAdmin:
		return "/admin"
	case session.RoleManager:
		return "/manager"
	default:
		return "/dashboard"
	}
}

// Evaluate decides on route for st. It holds no state of its own.
func Evaluate(r Route, st session.State) Decision {
	if r.Access == Public {
		return Decision{Outcome: Admit}
	}
	if st.Pending() {
		return Decision{Outcome: Loading}
	}

	switch r.Access {
	case GuestOnly:
		if st.Authenticated() {
			return Decision{Outcome: RedirectHome, Target: HomeFor(st.Role())}
		}
		return Decision{Outcome: Admit}
	case Authenticated:
		if !st.Authenticated() {
			return Decision{Outcome: RedirectLogin, Target: LoginPath, Next: r.Path}
		}
		if r.Require != "" && !st.Can(r.Require) {
			return Decision{Outcome: RedirectHome, Target: HomeFor(st.Role())}
		}
		return Decision{Outcome: Admit}
	}
	return Decision{Outcome: Admit}
}

// LoginURL is the login path carrying the page to return to.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// NextFrom extracts the return path from a login URL. Only local paths are
// accepted.
func NextFrom(loginURL string) string {
	_, query, ok := strings.Cut(loginURL, "?")
	if !ok {
		return ""
	}
	v, err := url.ParseQuery(query)
	if err != nil {
		return ""
	}
	next := v.Get("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}

// Table is an ordered set of routes.
type Table struct {
	routes []Route
	byPath map[string]Route
}

// NewTable builds a table; later duplicates replace earlier ones.
func NewTable(routes ...Route) *Table {
	t := &Table{byPath: make(map[string]Route, len(routes))}
	for _, r := range routes {
		if _, dup := t.byPath[r.Path]; !dup {
			t.routes = append(t.routes, r)
		}
		t.byPath[r.Path] = r
	}
	return t
}

// Lookup finds the route for path, ignoring any query string.
func (t *Table) Lookup(path string) (Route, bool) {
	p, _, _ := strings.Cut(path, "?")
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	r, ok := t.byPath[p]
	return r, ok
}

// Resolve looks up path and evaluates it.
func (t *Table) Resolve(path string, st session.State) (Route, Decision) {
	r, ok := t.Lookup(path)
	if !ok {
		return Route{Path: path}, Decision{Outcome: NotFound}
	}
	d := Evaluate(r, st)
	if d.Outcome == RedirectLogin {
		d.Next = path
	}
	return r, d
}

// Visible returns the routes admitted for st, in table order. Used to build
// role-aware menus.
func (t *Table) Visible(st session.State) []Route {
	var out []Route
	for _, r := range t.routes {
		if Evaluate(r, st).Outcome == Admit {
			out = append(out, r)
		}
	}
	return out
}

// DefaultTable is the client's route table.
func DefaultTable() *Table {
	return NewTable(
		Route{Path: LoginPath, Title: "Sign in", Access: GuestOnly},
		Route{Path: RegisterPath, Title: "Create account", Access: GuestOnly},
		Route{Path: "/listings", Title: "Browse hostels", Access: Public},
		Route{Path: "/dashboard", Title: "My dashboard", Access: Authenticated, Require: session.PermBook},
		Route{Path: "/bookings", Title: "My bookings", Access: Authenticated, Require: session.PermBook},
		Route{Path: "/messages", Title: "Messages", Access: Authenticated, Require: session.PermMessage},
		Route{Path: "/manager", Title: "Manager dashboard", Access: Authenticated, Require: session.PermManageListings},
		Route{Path: "/manager/bookings", Title: "Hostel bookings", Access: Authenticated, Require: session.PermViewHostelBookings},
		Route{Path: "/admin", Title: "Admin dashboard", Access: Authenticated, Require: session.PermManageUsers},
		Route{Path: "/admin/users", Title: "Users", Access: Authenticated, Require: session.PermManageUsers},
		Route{Path: "/settings", Title: "Settings", Access: Public},
	)
}
