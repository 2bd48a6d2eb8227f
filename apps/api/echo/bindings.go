package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,anyrole"` // optional portal pin on the generic login
}

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Role = core.CleanString(r.Role, true /* lower */)
	return validate.Struct(r)
}

type LoginResponse struct {
	Token    string           `json:"token"`
	Identity account.Identity `json:"identity"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type SessionResponse struct {
	Identity *account.Identity `json:"identity"`
	Approved bool              `json:"approved"`
}
