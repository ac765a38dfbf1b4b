package session

import (
	"testing"

	"github.com/notepid/hostelhub/internal/api"
)

func TestRolePredicates(t *testing.T) {
	cases := []struct {
		role     string
		manager  bool
		admin    bool
		wantTier Role
	}{
		{"admin", true, true, RoleAdmin},
		{"manager", true, false, RoleManager},
		{"user", false, false, RoleStudent},
		{"student", false, false, RoleStudent},
		{"", false, false, RoleStudent},
		{"superhero", false, false, RoleStudent},
	}
	for _, tc := range cases {
		st := State{Status: StatusAuthenticated, User: &api.User{ID: 1, Role: tc.role}}
		if st.IsManager() != tc.manager || st.IsAdmin() != tc.admin {
			t.Fatalf("role %q: IsManager=%v IsAdmin=%v", tc.role, st.IsManager(), st.IsAdmin())
		}
		if st.Role() != tc.wantTier {
			t.Fatalf("role %q parsed as %v", tc.role, st.Role())
		}
	}
}

func TestAnonymousHasNoPrivileges(t *testing.T) {
	st := State{Status: StatusAnonymous}
	if st.IsManager() || st.IsAdmin() || st.Can(PermMessage) {
		t.Fatalf("anonymous session must hold nothing")
	}
}

func TestPermissionsAreCumulative(t *testing.T) {
	if !RoleAdmin.Can(PermManageListings) || !RoleAdmin.Can(PermMessage) {
		t.Fatalf("admin must inherit lower tiers")
	}
	if !RoleManager.Can(PermBook) || RoleManager.Can(PermManageUsers) {
		t.Fatalf("manager permissions wrong")
	}
	if RoleStudent.Can(PermManageListings) {
		t.Fatalf("student must not manage listings")
	}
}
