package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/account"
)

type adminApi struct {
	deps *ServerDeps
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := adminApi{deps: deps}

	ag := g.Group("/admin", jwt, adminMiddleware(deps))
	ag.GET("/accounts", api.queryAccounts)
	ag.GET("/approvals", api.pendingApprovals)
	ag.POST("/approvals/:id/approve", api.approve)
	ag.POST("/approvals/:id/reject", api.reject)
}

// Handlers

func (api *adminApi) queryAccounts(ctx echo.Context) error {
	accts, err := api.deps.AccountSvc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	return ctx.JSON(http.StatusOK, sanitize(accts))
}

// pendingApprovals is the derived approval worklist.
func (api *adminApi) pendingApprovals(ctx echo.Context) error {
	accts, err := api.deps.AccountSvc.Pending()
	if err != nil {
		return errors.Wrap(err, "querying pending accounts")
	}
	return ctx.JSON(http.StatusOK, sanitize(accts))
}

func (api *adminApi) approve(ctx echo.Context) error {
	decision, err := api.deps.AccountSvc.Approve(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, decision)
}

func (api *adminApi) reject(ctx echo.Context) error {
	var data RejectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectRequest")
	}

	decision, err := api.deps.AccountSvc.Reject(ctx.Param("id"), data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, decision)
}

func sanitize(accts []account.Account) []account.Identity {
	idents := make([]account.Identity, 0, len(accts))
	for i := range accts {
		idents = append(idents, accts[i].Identity())
	}
	return idents
}
