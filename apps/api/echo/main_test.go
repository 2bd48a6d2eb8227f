package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/directory"
	memstore "github.com/trezcool/elimu/storage/record/memory"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type testEnv struct {
	conf     *core.Config
	store    *memstore.Store
	acctRepo *account.Repository
	acctSvc  account.Service
	session  *account.SessionManager
	app      *Server
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		TestMode:  true,
		AppName:   "Elimu",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	store := memstore.Open()
	acctRepo := account.NewRepository(store)
	acctSvc := account.NewService(acctRepo, nil, conf)
	session := account.NewSessionManager(store, acctRepo)
	acctSvc.BindSession(session)
	dirSvc := directory.NewService(directory.NewRepository(store), acctSvc)

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, found := uni.GetTranslator(_en.Locale())
	if !found {
		t.Fatalf("translator %q not found", _en.Locale())
	}
	validate := validator.New()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         nopLogger{},
		AccountSvc:     acctSvc,
		DirSvc:         dirSvc,
		Session:        session,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testEnv{
		conf:     conf,
		store:    store,
		acctRepo: acctRepo,
		acctSvc:  acctSvc,
		session:  session,
		app:      app,
	}
}

func (env *testEnv) createAccount(t *testing.T, name, email, pwd, role, status string) account.Account {
	t.Helper()
	now := time.Now().UTC()
	acct := account.Account{
		ID:        email,
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == account.StatusApproved {
		acct.Permissions = account.RolePermissions(role)
	}
	if pwd != "" {
		if err := acct.SetPassword(pwd); err != nil {
			t.Fatalf("createAccount() failed: %v", err)
		}
	}
	acct, err := env.acctRepo.CreateAccount(acct)
	if err != nil {
		t.Fatalf("createAccount() failed: %v", err)
	}
	return acct
}

func (env *testEnv) getToken(t *testing.T, acct account.Account) string {
	t.Helper()
	ident := acct.Identity()
	token, err := GenerateToken(env.conf, getIdentityClaims(env.conf, ident))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody() failed: %v; body: %s", err, rec.Body.String())
	}
}

func checkCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("code = %d; want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func checkErrorKind(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, wantKind string) errorResponse {
	t.Helper()
	checkCode(t, rec, wantCode)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Kind != wantKind {
		t.Errorf("kind = %q; want %q; body: %s", resp.Kind, wantKind, rec.Body.String())
	}
	return resp
}

func Test_home(t *testing.T) {
	env := setup(t)
	rec := env.do(http.MethodGet, "/", "")
	checkCode(t, rec, http.StatusOK)
}
