package account

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPortal        = errors.New("account does not belong to this portal")
	ErrPendingApproval    = errors.New("account is pending approval")

	errRejectionReason = errors.New("a rejection reason is required")
)

// RejectedError is returned on login attempts against a rejected account;
// it surfaces the rejection reason when one was recorded.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "account has been rejected"
	}
	return "account has been rejected: " + e.Reason
}

// IsRejected reports whether err marks a rejected account and returns the
// recorded reason.
func IsRejected(err error) (string, bool) {
	if rerr, ok := errors.Cause(err).(*RejectedError); ok {
		return rerr.Reason, true
	}
	return "", false
}

type (
	Service interface {
		RegisterStudent(ns NewStudent) (Identity, error)
		RegisterInstitute(ni NewInstitute) (Identity, error)
		CheckEmailUniqueness(email string) error

		// Authenticate verifies a credential pair and returns the
		// sanitized identity. expectedRole, when given, pins the login
		// to one portal.
		Authenticate(email, pwd string, expectedRole ...string) (Identity, error)

		GetByID(id string) (Account, error)
		GetByEmail(email string) (Account, error)
		QueryAll() ([]Account, error)
		Pending() ([]Account, error)

		Approve(id string) (Decision, error)
		Reject(id, reason string) (Decision, error)

		ResetPassword(email, pwd string) error
		EnsureAdmin() (Account, error)

		// BindSession registers the runtime session manager so that
		// approval transitions processed in this runtime refresh a live
		// session for the same account.
		BindSession(sm *SessionManager)
	}

	service struct {
		repo    *Repository
		mailSvc core.EmailService
		conf    *core.Config
		session *SessionManager
	}
)

var _ Service = (*service)(nil)

func NewService(repo *Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) BindSession(sm *SessionManager) { svc.session = sm }

func (svc *service) CheckEmailUniqueness(email string) error {
	if err := svc.repo.CheckEmailUniqueness(email); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) RegisterStudent(ns NewStudent) (Identity, error) {
	now := NowFunc().UTC()
	acct := Account{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Email:     ns.Email,
		Role:      RoleStudent,
		Status:    StatusPending,
		Profile:   ns.Profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(ns.Password); err != nil {
		return Identity{}, err
	}
	acct, err := svc.repo.CreateAccount(acct)
	if err != nil {
		return Identity{}, err
	}
	svc.sendWelcomeMail(acct)
	return acct.Identity(), nil
}

func (svc *service) RegisterInstitute(ni NewInstitute) (Identity, error) {
	profile, err := ni.profilePayload()
	if err != nil {
		return Identity{}, err
	}

	now := NowFunc().UTC()
	acct := Account{
		ID:        uuid.New().String(),
		Name:      ni.Name,
		Email:     ni.Email,
		Role:      RoleInstitute,
		Status:    StatusPending,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = acct.SetPassword(ni.Password); err != nil {
		return Identity{}, err
	}
	acct, err = svc.repo.CreateAccount(acct)
	if err != nil {
		return Identity{}, err
	}
	svc.sendWelcomeMail(acct)
	return acct.Identity(), nil
}

// Authenticate checks credentials first, then portal, then approval status
// so that failure shape never leaks whether an email exists.
func (svc *service) Authenticate(email, pwd string, expectedRole ...string) (Identity, error) {
	acct, err := svc.repo.GetAccountByEmail(core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, errors.Wrap(err, "finding account by email")
	}
	if err = acct.CheckPassword(pwd); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	if len(expectedRole) > 0 && expectedRole[0] != "" && acct.Role != expectedRole[0] {
		return Identity{}, ErrWrongPortal
	}

	if !acct.IsAdmin() {
		switch acct.Status {
		case StatusPending:
			return Identity{}, ErrPendingApproval
		case StatusRejected:
			return Identity{}, &RejectedError{Reason: acct.RejectionReason}
		}
	}

	acct.LoginCount++
	acct.LastLogin = NowFunc().UTC()
	acct.UpdatedAt = acct.LastLogin
	acct, err = svc.repo.UpdateAccount(acct)
	if err != nil {
		return Identity{}, errors.Wrap(err, "setting lastLogin")
	}
	return acct.Identity(), nil
}

func (svc *service) GetByID(id string) (Account, error) {
	return svc.repo.GetAccountByID(id)
}

func (svc *service) GetByEmail(email string) (Account, error) {
	return svc.repo.GetAccountByEmail(core.CleanString(email, true /* lower */))
}

func (svc *service) QueryAll() ([]Account, error) {
	return svc.repo.QueryAllAccounts()
}

func (svc *service) Pending() ([]Account, error) {
	return svc.repo.QueryPendingAccounts()
}

// Approve transitions a pending account to approved and grants its role
// permission set. Approving an already-approved account is a no-op success;
// ApprovedAt is set exactly once.
func (svc *service) Approve(id string) (Decision, error) {
	acct, err := svc.repo.GetAccountByID(id)
	if err != nil {
		return Decision{}, err
	}

	now := NowFunc().UTC()
	decision := Decision{AccountID: acct.ID, Outcome: OutcomeApproved, At: now}

	if acct.Status == StatusApproved {
		return decision, nil
	}

	acct.Status = StatusApproved
	acct.RejectionReason = ""
	acct.Permissions = RolePermissions(acct.Role)
	if acct.ApprovedAt == nil {
		acct.ApprovedAt = &now
	}
	acct.UpdatedAt = now

	acct, err = svc.repo.UpdateAccount(acct)
	if err != nil {
		return Decision{}, err
	}

	svc.refreshBoundSession(acct.ID)
	svc.sendDecisionMail(acct, decision)
	return decision, nil
}

// Reject transitions an account to rejected. The reason is required:
// rejecting without one fails validation and leaves the account untouched.
// ApprovedAt is never cleared.
func (svc *service) Reject(id, reason string) (Decision, error) {
	reason = core.CleanString(reason)
	if reason == "" {
		return Decision{}, core.NewValidationError(
			errRejectionReason,
			core.FieldError{Field: "reason", Error: errRejectionReason.Error()},
		)
	}

	acct, err := svc.repo.GetAccountByID(id)
	if err != nil {
		return Decision{}, err
	}

	now := NowFunc().UTC()
	decision := Decision{AccountID: acct.ID, Outcome: OutcomeRejected, Reason: reason, At: now}

	acct.Status = StatusRejected
	acct.RejectionReason = reason
	acct.Permissions = nil
	acct.UpdatedAt = now

	acct, err = svc.repo.UpdateAccount(acct)
	if err != nil {
		return Decision{}, err
	}

	svc.refreshBoundSession(acct.ID)
	svc.sendDecisionMail(acct, decision)
	return decision, nil
}

func (svc *service) ResetPassword(email, pwd string) error {
	acct, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if err = acct.SetPassword(pwd); err != nil {
		return err
	}
	acct.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateAccount(acct)
	return err
}

// EnsureAdmin bootstraps the singleton admin account from configuration.
// An existing admin is returned as-is; without a configured password no
// admin is created.
func (svc *service) EnsureAdmin() (Account, error) {
	if admin, err := svc.repo.GetAdmin(); err == nil {
		return admin, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Account{}, err
	}

	if svc.conf.Admin.Password == "" {
		return Account{}, errors.New("no admin password configured")
	}

	now := NowFunc().UTC()
	admin := Account{
		ID:        uuid.New().String(),
		Name:      svc.conf.Admin.Name,
		Email:     core.CleanString(svc.conf.Admin.Email, true /* lower */),
		Role:      RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := admin.SetPassword(svc.conf.Admin.Password); err != nil {
		return Account{}, err
	}
	if err := svc.repo.SaveAdmin(admin); err != nil {
		return Account{}, err
	}
	return admin, nil
}

// refreshBoundSession keeps a live session for the processed account from
// diverging after an admin action in the same runtime. Cross-runtime
// staleness is handled by SessionManager.Refresh / Watch.
func (svc *service) refreshBoundSession(id string) {
	if svc.session == nil {
		return
	}
	if ident, ok := svc.session.Current(); ok && ident.ID == id {
		_, _ = svc.session.Refresh()
	}
}

func (svc *service) sendWelcomeMail(acct Account) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acct.Name, Address: acct.Email}},
		Subject:      "Welcome! Your registration is being reviewed",
		TemplateName: "welcome",
		TemplateData: struct {
			Name string
			Role string
		}{acct.Name, acct.Role},
	})
}

func (svc *service) sendDecisionMail(acct Account, decision Decision) {
	if svc.mailSvc == nil {
		return
	}
	msg := &core.EmailMessage{
		To: []mail.Address{{Name: acct.Name, Address: acct.Email}},
	}
	switch decision.Outcome {
	case OutcomeApproved:
		msg.Subject = fmt.Sprintf("Your %s account has been approved", acct.Role)
		msg.TemplateName = "account-approved"
		msg.TemplateData = struct {
			Name string
			Role string
		}{acct.Name, acct.Role}
	case OutcomeRejected:
		msg.Subject = fmt.Sprintf("Your %s registration was not approved", acct.Role)
		msg.TemplateName = "account-rejected"
		msg.TemplateData = struct {
			Name   string
			Role   string
			Reason string
		}{acct.Name, acct.Role, decision.Reason}
	}
	svc.mailSvc.SendMessages(msg)
}
