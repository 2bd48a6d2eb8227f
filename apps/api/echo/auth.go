package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
)

const (
	jwtContextKey  = "accountToken"
	contextUserKey = "accountIdentity"
)

// appJWTConfig is the JWT auth middleware config.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"`   // -> STUDENT PORTAL
	IsInstitute  bool     `json:"is_institute,omitempty"` // -> INSTITUTE PORTAL
	IsAdmin      bool     `json:"is_admin,omitempty"`     // -> ADMIN PORTAL
	Role         string   `json:"role,omitempty"`
	Status       string   `json:"status,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
}

func getIdentityClaims(conf *core.Config, ident account.Identity, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   ident.ID,
			Audience:  "Directory",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         ident.Name,
		Email:        ident.Email,
		IsStudent:    ident.IsStudent(),
		IsInstitute:  ident.IsInstitute(),
		IsAdmin:      ident.IsAdmin(),
		Role:         ident.Role,
		Status:       ident.Status,
		Permissions:  ident.Permissions,
	}
}

// authenticate resolves the credential pair through the account service and
// establishes the runtime session for the resulting identity.
func authenticate(deps *ServerDeps, email, pwd string, expectedRole ...string) (*Claims, error) {
	ident, err := deps.AccountSvc.Authenticate(email, pwd, expectedRole...)
	if err != nil {
		return nil, err
	}
	if deps.Session != nil {
		if err = deps.Session.Establish(ident); err != nil {
			return nil, errors.Wrap(err, "establishing session")
		}
	}
	return getIdentityClaims(deps.Conf, ident), nil
}

// GenerateToken generates a signed JWT token string representing the claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextIdentity re-reads the authoritative account for the claims'
// subject so role/status checks never trust a stale token alone.
func getContextIdentity(ctx echo.Context, deps *ServerDeps, clms ...Claims) (account.Identity, error) {
	if ident, ok := ctx.Get(contextUserKey).(account.Identity); ok {
		return ident, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return account.Identity{}, errors.Wrap(err, "getting context claims")
		}
	}

	acct, err := deps.AccountSvc.GetByID(claims.Subject)
	if err != nil {
		return account.Identity{}, errors.Wrap(err, "finding account by ID")
	}
	ident := acct.Identity()
	ctx.Set(contextUserKey, ident)
	return ident, nil
}

func refreshToken(ctx echo.Context, deps *ServerDeps) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	ident, err := getContextIdentity(ctx, deps, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context identity")
	}

	// a rejection since issuance invalidates the token
	if !ident.IsAdmin() && ident.Status == account.StatusRejected {
		return "", errAccountRejected
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(deps.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := getIdentityClaims(deps.Conf, ident, claims.OrigIssuedAt)
	token, err := GenerateToken(deps.Conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
