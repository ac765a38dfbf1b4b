package session

import "strings"

// Role is an ordered privilege tier. Higher tiers include lower ones.
type Role int

const (
	RoleStudent Role = iota
	RoleManager
	RoleAdmin
)

// ParseRole maps a backend role string to a tier. "user", "student" and
// anything unrecognised are the base tier.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	default:
		return RoleStudent
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	default:
		return "student"
	}
}

// Permission names a capability checked by guards and screens.
type Permission string

const (
	PermBrowseListings     Permission = "listings:browse"
	PermBook               Permission = "bookings:create"
	PermMessage            Permission = "messages:use"
	PermManageListings     Permission = "listings:manage"
	PermViewHostelBookings Permission = "bookings:hostel"
	PermManageUsers        Permission = "users:manage"
	PermViewAnalytics      Permission = "analytics:view"
)

// grants lists what each tier adds on top of the tiers below it.
var grants = map[Role][]Permission{
	RoleStudent: {PermBrowseListings, PermBook, PermMessage},
	RoleManager: {PermManageListings, PermViewHostelBookings},
	RoleAdmin:   {PermManageUsers, PermViewAnalytics},
}

// permissions is grants expanded along the tier order.
var permissions = expand(grants)

func expand(g map[Role][]Permission) map[Role]map[Permission]bool {
	out := make(map[Role]map[Permission]bool, len(g))
	acc := map[Permission]bool{}
	for r := RoleStudent; r <= RoleAdmin; r++ {
		for _, p := range g[r] {
			acc[p] = true
		}
		set := make(map[Permission]bool, len(acc))
		for p := range acc {
			set[p] = true
		}
		out[r] = set
	}
	return out
}

// Can reports whether the tier holds p.
func (r Role) Can(p Permission) bool {
	return permissions[r][p]
}
