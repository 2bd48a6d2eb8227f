package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/account"
)

// gateMiddleware runs every request on a guarded route through the access
// gate. A non-allow decision answers 403 with the redirect target the
// frontend should navigate to.
func gateMiddleware(deps *ServerDeps, requiredRoles []string, requireApproval bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := getContextIdentity(ctx, deps)
			if err != nil {
				if errors.Cause(err) == account.ErrNotFound {
					// account vanished since token issuance
					return errUnauthorized
				}
				decision := account.Decide(nil, requiredRoles, requireApproval, ctx.Path())
				return ctx.JSON(http.StatusUnauthorized, gateResponse{RedirectTo: decision.RedirectTo})
			}

			decision := account.Decide(&ident, requiredRoles, requireApproval, ctx.Path())
			if !decision.Allowed {
				return ctx.JSON(http.StatusForbidden, gateResponse{RedirectTo: decision.RedirectTo})
			}
			return next(ctx)
		}
	}
}

func adminMiddleware(deps *ServerDeps) echo.MiddlewareFunc {
	return gateMiddleware(deps, []string{account.RoleAdmin}, false)
}

func instituteMiddleware(deps *ServerDeps) echo.MiddlewareFunc {
	return gateMiddleware(deps, []string{account.RoleInstitute}, true /* requireApproval */)
}

func studentMiddleware(deps *ServerDeps) echo.MiddlewareFunc {
	return gateMiddleware(deps, []string{account.RoleStudent}, false)
}

type gateResponse struct {
	RedirectTo string `json:"redirect_to"`
}
