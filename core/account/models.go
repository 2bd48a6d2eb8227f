package account

import (
	"encoding/json"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

// Roles. Each role maps to its own portal (login entry point).
const (
	RoleAdmin     = "admin"
	RoleInstitute = "institute"
	RoleStudent   = "student"
)

// Approval statuses. Admin accounts carry no status; they are implicitly
// authorized.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Permissions granted on approval.
const (
	PermManageCourses = "manage_courses"
	PermViewEnquiries = "view_enquiries"
	PermManageReviews = "manage_reviews"

	PermEnrollCourses = "enroll_courses"
	PermPostReviews   = "post_reviews"
	PermSendEnquiries = "send_enquiries"
)

var (
	AllRoles = []string{RoleAdmin, RoleInstitute, RoleStudent}

	rolePermissions = map[string][]string{
		RoleInstitute: {PermManageCourses, PermViewEnquiries, PermManageReviews},
		RoleStudent:   {PermEnrollCourses, PermPostReviews, PermSendEnquiries},
	}

	// portal redirect priority when a route accepts several roles
	rolePriorities = map[string]int{
		RoleAdmin:     3,
		RoleInstitute: 2,
		RoleStudent:   1,
	}
)

// RolePermissions returns the permission set a role is granted on approval.
func RolePermissions(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

// Account is the stored identity record: a student, an institute or the
// singleton admin. Role-specific payload lives in Profile and is never
// inspected by the core beyond existence.
type Account struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	PasswordHash    []byte          `json:"password_hash"`
	Role            string          `json:"role"`
	Status          string          `json:"status,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	Permissions     []string        `json:"permissions,omitempty"`
	Profile         json.RawMessage `json:"profile,omitempty"`
	LoginCount      int             `json:"login_count"`
	LastLogin       time.Time       `json:"last_login"` // UTC
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"` // UTC
	UpdatedAt       time.Time       `json:"updated_at"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsAdmin() bool     { return a.Role == RoleAdmin }
func (a *Account) IsInstitute() bool { return a.Role == RoleInstitute }
func (a *Account) IsStudent() bool   { return a.Role == RoleStudent }

// Identity returns the sanitized projection of the Account; it carries no
// credential fields and is the only shape handed to sessions and callers.
func (a *Account) Identity() Identity {
	perms := make([]string, len(a.Permissions))
	copy(perms, a.Permissions)
	return Identity{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Role:            a.Role,
		Status:          a.Status,
		RejectionReason: a.RejectionReason,
		Permissions:     perms,
		Profile:         a.Profile,
		LastLogin:       a.LastLogin,
		ApprovedAt:      a.ApprovedAt,
		CreatedAt:       a.CreatedAt,
	}
}

// Identity is a sanitized Account.
type Identity struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Role            string          `json:"role"`
	Status          string          `json:"status,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	Permissions     []string        `json:"permissions,omitempty"`
	Profile         json.RawMessage `json:"profile,omitempty"`
	LastLogin       time.Time       `json:"last_login"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (i *Identity) IsAdmin() bool     { return i.Role == RoleAdmin }
func (i *Identity) IsInstitute() bool { return i.Role == RoleInstitute }
func (i *Identity) IsStudent() bool   { return i.Role == RoleStudent }

// IsApproved treats admin as implicitly approved.
func (i *Identity) IsApproved() bool {
	return i.IsAdmin() || i.Status == StatusApproved
}

func (i *Identity) HasPermission(perm string) bool {
	for _, p := range i.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Approval decision outcomes.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
)

// Decision represents one admin approval action. It is ephemeral: applying
// it mutates exactly one Account and cascades to nothing else.
type Decision struct {
	AccountID string    `json:"account_id"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// NewStudent contains information needed to register a student account.
type NewStudent struct {
	Name            string          `json:"name" validate:"required"`
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password" validate:"required"`
	PasswordConfirm string          `json:"password_confirm" validate:"required,eqfield=Password"`
	Profile         json.RawMessage `json:"profile,omitempty"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ns.Email)
}

// NewInstitute contains information needed to register an institute account.
type NewInstitute struct {
	Name            string          `json:"name" validate:"required"`
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password" validate:"required"`
	PasswordConfirm string          `json:"password_confirm" validate:"required,eqfield=Password"`
	Category        string          `json:"category" validate:"required,alphanum_"`
	Address         string          `json:"address" validate:"required"`
	Profile         json.RawMessage `json:"profile,omitempty"`
}

func (ni *NewInstitute) Validate(validate *validator.Validate, svc Service) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	ni.Category = core.CleanString(ni.Category)
	ni.Address = core.CleanString(ni.Address)

	if err := validate.Struct(ni); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ni.Email)
}

// profilePayload folds the required category and address into the account's
// Profile, preserving any extra fields the registrant supplied.
func (ni NewInstitute) profilePayload() (json.RawMessage, error) {
	profile := InstituteProfile{}
	if len(ni.Profile) > 0 {
		if err := json.Unmarshal(ni.Profile, &profile); err != nil {
			return nil, errors.Wrap(err, "decoding institute profile")
		}
	}
	profile.Category = ni.Category
	profile.Address = ni.Address
	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, errors.Wrap(err, "encoding institute profile")
	}
	return raw, nil
}

// InstituteProfile is the conventional shape of an institute's Profile
// payload. The core persists it opaquely; only the directory endpoints
// decode it.
type InstituteProfile struct {
	Category    string `json:"category,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
}
