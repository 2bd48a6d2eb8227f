package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/directory"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errRefreshExpired  = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errAccountRejected = echo.NewHTTPError(http.StatusForbidden, "account has been rejected")
)

// error kinds surfaced to clients so portals can message each condition
// differently.
const (
	kindInvalidCredentials = "invalid_credentials"
	kindWrongPortal        = "wrong_portal"
	kindPendingApproval    = "pending_approval"
	kindRejected           = "rejected"
	kindNotFound           = "not_found"
	kindPermissionDenied   = "permission_denied"
	kindValidation         = "validation"
	kindStorage            = "storage"
)

type errorResponse struct {
	Kind   string      `json:"kind"`
	Error  interface{} `json:"error"`
	Reason string      `json:"reason,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows
// how to handle our errors. signalShutdown is called in order to
// gracefully shut the server down whenever a core shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = errorResponse{Kind: kindValidation, Error: fldErrs}
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = errorResponse{Kind: kindValidation, Error: fldErrs}
			} else {
				message = errorResponse{Kind: kindValidation, Error: origErr.Error()}
			}
			code = http.StatusBadRequest
		case *account.RejectedError:
			code = http.StatusForbidden
			message = errorResponse{Kind: kindRejected, Error: "account has been rejected", Reason: origErr.Reason}
		case *core.StorageError:
			code = http.StatusServiceUnavailable
			message = errorResponse{Kind: kindStorage, Error: "storage unavailable"}
			logger.Error("record store failure", err)
		default:
			switch cause {
			case account.ErrInvalidCredentials:
				code = http.StatusBadRequest
				message = errorResponse{Kind: kindInvalidCredentials, Error: cause.Error()}
			case account.ErrWrongPortal:
				code = http.StatusForbidden
				message = errorResponse{Kind: kindWrongPortal, Error: cause.Error()}
			case account.ErrPendingApproval:
				code = http.StatusForbidden
				message = errorResponse{Kind: kindPendingApproval, Error: cause.Error()}
			case account.ErrNotFound, directory.ErrNotFound:
				code = http.StatusNotFound
				message = errorResponse{Kind: kindNotFound, Error: cause.Error()}
			case directory.ErrPermissionDenied, directory.ErrNotApproved:
				code = http.StatusForbidden
				message = errorResponse{Kind: kindPermissionDenied, Error: cause.Error()}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var ident account.Identity
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					ident.ID = claims.Subject
					ident.Name = claims.Name
					ident.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), ident)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
