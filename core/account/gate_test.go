package account

import "testing"

func Test_Decide(t *testing.T) {
	admin := &Identity{ID: "a1", Role: RoleAdmin}
	student := &Identity{ID: "s1", Role: RoleStudent, Status: StatusApproved, Permissions: RolePermissions(RoleStudent)}
	pendingInst := &Identity{ID: "i1", Role: RoleInstitute, Status: StatusPending}
	rejectedInst := &Identity{ID: "i2", Role: RoleInstitute, Status: StatusRejected}
	approvedInst := &Identity{ID: "i3", Role: RoleInstitute, Status: StatusApproved, Permissions: RolePermissions(RoleInstitute)}

	tests := []struct {
		name            string
		ident           *Identity
		requiredRoles   []string
		requireApproval bool
		path            string
		wantAllowed     bool
		wantRedirect    string
	}{
		// anonymous: bounce to the portal login
		{name: "anonymous on admin route", requiredRoles: []string{RoleAdmin}, path: "/accounts", wantRedirect: AdminLoginPath},
		{name: "anonymous on institute route", requiredRoles: []string{RoleInstitute}, path: "/courses", wantRedirect: InstituteLoginPath},
		{name: "anonymous on student route", requiredRoles: []string{RoleStudent}, path: "/enroll", wantRedirect: StudentLoginPath},
		// the highest-priority accepted role picks the portal
		{name: "anonymous on shared route", requiredRoles: []string{RoleStudent, RoleInstitute}, path: "/x", wantRedirect: InstituteLoginPath},
		{name: "anonymous on any-role admin-shared route", requiredRoles: []string{RoleStudent, RoleAdmin}, path: "/x", wantRedirect: AdminLoginPath},
		// with no required roles the path prefix decides
		{name: "anonymous under /admin", path: "/admin/approvals", wantRedirect: AdminLoginPath},
		{name: "anonymous under /institute", path: "/institute/courses", wantRedirect: InstituteLoginPath},
		{name: "anonymous elsewhere", path: "/profile", wantRedirect: LoginPath},

		// wrong role
		{name: "student on admin route", ident: student, requiredRoles: []string{RoleAdmin}, path: "/admin", wantRedirect: UnauthorizedPath},
		{name: "institute on admin route", ident: approvedInst, requiredRoles: []string{RoleAdmin}, path: "/admin", wantRedirect: UnauthorizedPath},
		{name: "admin on student route", ident: admin, requiredRoles: []string{RoleStudent}, path: "/enroll", wantRedirect: UnauthorizedPath},

		// institute approval gating
		{name: "pending institute on gated route", ident: pendingInst, requiredRoles: []string{RoleInstitute}, requireApproval: true, path: "/institute/courses", wantRedirect: InstitutePendingPath},
		{name: "rejected institute on gated route", ident: rejectedInst, requiredRoles: []string{RoleInstitute}, requireApproval: true, path: "/institute/courses", wantRedirect: InstituteRejectedPath},
		{name: "approved institute on gated route", ident: approvedInst, requiredRoles: []string{RoleInstitute}, requireApproval: true, path: "/institute/courses", wantAllowed: true},
		{name: "pending institute on ungated route", ident: pendingInst, requiredRoles: []string{RoleInstitute}, path: "/institute/pending-approval", wantAllowed: true},

		// an institute never reaches the admin area even on an unguarded path
		{name: "institute on /admin", ident: approvedInst, path: "/admin", wantRedirect: InstituteHomePath},
		{name: "institute under /admin", ident: approvedInst, path: "/admin/approvals", wantRedirect: InstituteHomePath},
		{name: "institute on /administration lookalike", ident: approvedInst, path: "/administration", wantAllowed: true},

		// allowed
		{name: "admin on admin route", ident: admin, requiredRoles: []string{RoleAdmin}, path: "/admin", wantAllowed: true},
		{name: "student on open route", ident: student, path: "/courses", wantAllowed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.ident, tt.requiredRoles, tt.requireApproval, tt.path)
			if got.Allowed != tt.wantAllowed {
				t.Errorf("Decide().Allowed = %v; want %v", got.Allowed, tt.wantAllowed)
			}
			if got.RedirectTo != tt.wantRedirect {
				t.Errorf("Decide().RedirectTo = %q; want %q", got.RedirectTo, tt.wantRedirect)
			}
		})
	}
}

func Test_Decide_isPure(t *testing.T) {
	ident := &Identity{ID: "i1", Role: RoleInstitute, Status: StatusPending}
	first := Decide(ident, []string{RoleInstitute}, true, "/institute/courses")
	for i := 0; i < 3; i++ {
		if got := Decide(ident, []string{RoleInstitute}, true, "/institute/courses"); got != first {
			t.Fatalf("Decide() = %+v; want %+v on every call", got, first)
		}
	}
	if ident.Status != StatusPending {
		t.Error("Decide() mutated its input")
	}
}
