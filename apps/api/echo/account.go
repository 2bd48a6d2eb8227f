package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/account"
)

type accountApi struct {
	deps *ServerDeps
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := accountApi{deps: deps}

	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/student/register", api.registerStudent)
	ag.POST("/institute/register", api.registerInstitute)
	ag.POST("/login", api.login)
	ag.POST("/admin/login", api.portalLogin(account.RoleAdmin))
	ag.POST("/institute/login", api.portalLogin(account.RoleInstitute))
	ag.POST("/student/login", api.portalLogin(account.RoleStudent))

	// authed endpoints
	tg := ag.Group("", jwt)
	tg.POST("/token-refresh", api.refreshToken)
	tg.GET("/me", api.me)

	// runtime session endpoints
	sg := g.Group("/session", jwt)
	sg.GET("", api.session)
	sg.POST("/refresh", api.refreshSession)
	sg.DELETE("", api.clearSession)
}

// Handlers

func (api *accountApi) registerStudent(ctx echo.Context) error {
	var data account.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.deps.Validate, api.deps.AccountSvc); err != nil {
		return err
	}

	ident, err := api.deps.AccountSvc.RegisterStudent(data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusCreated, ident)
}

func (api *accountApi) registerInstitute(ctx echo.Context) error {
	var data account.NewInstitute
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstitute")
	}
	if err := data.Validate(api.deps.Validate, api.deps.AccountSvc); err != nil {
		return err
	}

	ident, err := api.deps.AccountSvc.RegisterInstitute(data)
	if err != nil {
		return errors.Wrap(err, "registering institute")
	}
	return ctx.JSON(http.StatusCreated, ident)
}

func (api *accountApi) login(ctx echo.Context) error {
	return api.handleLogin(ctx, "")
}

// portalLogin pins a login to one portal; a valid credential pair for
// another role fails with the wrong-portal kind rather than bad
// credentials.
func (api *accountApi) portalLogin(role string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return api.handleLogin(ctx, role)
	}
}

func (api *accountApi) handleLogin(ctx echo.Context, role string) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	if role == "" {
		role = data.Role
	}

	claims, err := authenticate(api.deps, data.Email, data.Password, role)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.deps.Conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	ident, _ := api.deps.Session.Current()
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Identity: ident})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.deps)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *accountApi) me(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ident)
}

func (api *accountApi) session(ctx echo.Context) error {
	if ident, ok := api.deps.Session.Current(); ok {
		return ctx.JSON(http.StatusOK, SessionResponse{Identity: &ident, Approved: ident.IsApproved()})
	}
	return ctx.JSON(http.StatusOK, SessionResponse{})
}

func (api *accountApi) refreshSession(ctx echo.Context) error {
	approved, err := api.deps.Session.Refresh()
	if err != nil {
		return errors.Wrap(err, "refreshing session")
	}
	if ident, ok := api.deps.Session.Current(); ok {
		return ctx.JSON(http.StatusOK, SessionResponse{Identity: &ident, Approved: approved})
	}
	return ctx.JSON(http.StatusOK, SessionResponse{}) // forced logout
}

func (api *accountApi) clearSession(ctx echo.Context) error {
	if err := api.deps.Session.Clear(); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	return ctx.NoContent(http.StatusNoContent)
}
