package account

import "strings"

// Route targets the gate redirects to. The frontend owns the actual pages;
// the gate only names them.
const (
	LoginPath          = "/login"
	AdminLoginPath     = "/admin/login"
	InstituteLoginPath = "/institute/login"
	StudentLoginPath   = "/student/login"

	UnauthorizedPath      = "/unauthorized"
	AdminHomePath         = "/admin"
	InstituteHomePath     = "/institute"
	InstitutePendingPath  = "/institute/pending-approval"
	InstituteRejectedPath = "/institute/rejected"
)

// GateDecision is the outcome of an access check: either allow, or
// redirect to a target path.
type GateDecision struct {
	Allowed    bool
	RedirectTo string
}

func allow() GateDecision                 { return GateDecision{Allowed: true} }
func redirect(target string) GateDecision { return GateDecision{RedirectTo: target} }

// Decide is the pure access-control gate consulted before any role-guarded
// view. Same inputs always produce the same decision; it performs no I/O
// and mutates nothing.
//
// ident is nil when no session is active. requiredRoles lists the roles a
// route accepts (empty means any authenticated identity). requireApproval
// additionally demands an approved institute. path is the requested route.
func Decide(ident *Identity, requiredRoles []string, requireApproval bool, path string) GateDecision {
	if ident == nil {
		return redirect(loginPathFor(requiredRoles, path))
	}

	if len(requiredRoles) > 0 && !roleIn(ident.Role, requiredRoles) {
		return redirect(UnauthorizedPath)
	}

	if ident.IsInstitute() {
		if requireApproval && ident.Status != StatusApproved {
			return redirect(statusPath(ident.Status))
		}
		// defense in depth beyond the role check
		if strings.HasPrefix(path, AdminHomePath+"/") || path == AdminHomePath {
			return redirect(InstituteHomePath)
		}
	}

	return allow()
}

// loginPathFor picks the portal login to bounce an anonymous request to:
// the highest-priority required role wins (admin > institute > student);
// with no required roles the path prefix decides; generic login otherwise.
func loginPathFor(requiredRoles []string, path string) string {
	if len(requiredRoles) > 0 {
		best := ""
		for _, role := range requiredRoles {
			if RolePriority(role) > RolePriority(best) {
				best = role
			}
		}
		switch best {
		case RoleAdmin:
			return AdminLoginPath
		case RoleInstitute:
			return InstituteLoginPath
		case RoleStudent:
			return StudentLoginPath
		}
	}

	switch {
	case strings.HasPrefix(path, "/admin"):
		return AdminLoginPath
	case strings.HasPrefix(path, "/institute"):
		return InstituteLoginPath
	}
	return LoginPath
}

func statusPath(status string) string {
	switch status {
	case StatusPending:
		return InstitutePendingPath
	case StatusRejected:
		return InstituteRejectedPath
	}
	return InstituteHomePath
}

func roleIn(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
