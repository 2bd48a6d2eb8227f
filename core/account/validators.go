package account

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/elimu/core"
)

var (
	anyRoleTag  = "anyrole"
	anyRoleText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to account attributes"
)

// InitValidators registers account-specific validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(anyRoleTag, anyRoleValidation)
	core.RegisterCustomTranslation(validate, translator, anyRoleTag, anyRoleText)

	validate.RegisterStructValidation(accountStructValidation, NewStudent{})
	validate.RegisterStructValidation(accountStructValidation, NewInstitute{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// anyRoleValidation checks that the provided role is in AllRoles.
func anyRoleValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	sort.Strings(AllRoles)
	if idx := sort.SearchStrings(AllRoles, role); idx < len(AllRoles) {
		return AllRoles[idx] == role
	}
	return false
}

// accountStructValidation does struct level validation on registration structs.
func accountStructValidation(sl validator.StructLevel) {
	switch acct := sl.Current().Interface().(type) {
	case NewStudent:
		validatePassword(acct.Password, acct.Name, acct.Email, sl)
	case NewInstitute:
		validatePassword(acct.Password, acct.Name, acct.Email, sl)
	}
}

// validatePassword applies the password policy to the provided password:
// - minLen: 8
// - no whitespace
// - not all numeric
// - no account attr similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var digitCount int
	for _, char := range []rune(pwd) {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
		return
	}
}
