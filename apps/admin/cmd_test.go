package main

import (
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	memstore "github.com/trezcool/elimu/storage/record/memory"
)

var acctRepo *account.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()
	logger = log.New(ioutil.Discard, "", 0)

	store := memstore.Open()
	acctRepo = account.NewRepository(store)
	return &commandLine{
		acctSvc: account.NewService(acctRepo, nil, &core.Config{TestMode: true}),
	}
}

func createAccount(t *testing.T, name, email, pwd, role, status string) account.Account {
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
	if pwd != "" {
		if err := acct.SetPassword(pwd); err != nil {
			t.Fatalf("createAccount() failed: %v", err)
		}
	}
	acct, err := acctRepo.CreateAccount(acct)
	if err != nil {
		t.Fatalf("createAccount() failed: %v", err)
	}
	return acct
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	extra   interface{}
}

func Test_commandLine_help(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "approve without id", args: []string{"approve"}, wantErr: errHelp},
		{name: "reject without id", args: []string{"reject", "-reason", "lol"}, wantErr: errHelp},
		{name: "resetpassword without email", args: []string{"resetpassword"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"admin"}, tt.args...)
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_listPending(t *testing.T) {
	cli := setup(t)
	createAccount(t, "Kin Tech", "kti@test.cd", "!L0v3Elimu", account.RoleInstitute, account.StatusPending)

	if err := cli.run([]string{"admin", "listpending"}); err != nil {
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_approve(t *testing.T) {
	cli := setup(t)
	acct := createAccount(t, "Kin Tech", "kti@test.cd", "!L0v3Elimu", account.RoleInstitute, account.StatusPending)

	if err := cli.run([]string{"admin", "approve", "-id", "lol"}); err != account.ErrNotFound {
		t.Errorf("cli.run() error = %v, wantErr %v", err, account.ErrNotFound)
	}

	if err := cli.run([]string{"admin", "approve", "-id", acct.ID}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	refreshed, err := acctRepo.GetAccountByID(acct.ID)
	if err != nil {
		t.Fatalf("GetAccountByID() failed: %v", err)
	}
	if refreshed.Status != account.StatusApproved {
		t.Errorf("Status = %q; want %q", refreshed.Status, account.StatusApproved)
	}
}

func Test_commandLine_reject(t *testing.T) {
	cli := setup(t)
	acct := createAccount(t, "Kin Tech", "kti@test.cd", "!L0v3Elimu", account.RoleInstitute, account.StatusPending)

	// a reason is required by the service
	if err := cli.run([]string{"admin", "reject", "-id", acct.ID}); err == nil {
		t.Error("cli.run() succeeded without a reason")
	}

	if err := cli.run([]string{"admin", "reject", "-id", acct.ID, "-reason", "incomplete registration documents"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	refreshed, _ := acctRepo.GetAccountByID(acct.ID)
	if refreshed.Status != account.StatusRejected {
		t.Errorf("Status = %q; want %q", refreshed.Status, account.StatusRejected)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	acct := createAccount(t, "Awe", "awe@test.cd", "!L0v3Elimu", account.RoleStudent, account.StatusApproved)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "email but no password", args: []string{"resetpassword", "-email", acct.Email}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "!An0therPwd"}, wantErr: account.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", acct.Email}, extra: extra{pwd: "!An0therPwd"}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if err == nil {
				refreshed, err := acctRepo.GetAccountByID(acct.ID)
				if err != nil {
					t.Fatalf("GetAccountByID() failed: %v", err)
				}
				if cpErr := refreshed.CheckPassword("!An0therPwd"); cpErr != nil {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
