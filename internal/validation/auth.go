package validation

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/iudanet/authkeeper/pkg/api"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 6
	// MaxFieldLen максимальная длина email, имени и пароля
	MaxFieldLen = 255
	// MaxCodeLen максимальная длина кода подтверждения
	MaxCodeLen = 64
)

// ErrPasswordMismatch is returned when password and confirmPassword differ.
var ErrPasswordMismatch = errors.New("passwords do not match")

var (
	emailRules    = []validation.Rule{validation.Required, validation.Length(1, MaxFieldLen), is.Email}
	passwordRules = []validation.Rule{validation.Required, validation.Length(MinPasswordLen, MaxFieldLen)}
	codeRules     = []validation.Rule{validation.Required, validation.Length(1, MaxCodeLen)}
)

// ValidateRegister проверяет запрос на регистрацию
func ValidateRegister(req *api.RegisterRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.RuneLength(1, MaxFieldLen)),
		validation.Field(&req.Email, emailRules...),
		validation.Field(&req.Password, passwordRules...),
		validation.Field(&req.ConfirmPassword, append(passwordRules, validation.By(equals(req.Password)))...),
	)
}

// ValidateLogin проверяет запрос на вход
func ValidateLogin(req *api.LoginRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Email, emailRules...),
		validation.Field(&req.Password, passwordRules...),
	)
}

// ValidateForgotPassword проверяет запрос на сброс пароля
func ValidateForgotPassword(req *api.ForgotPasswordRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Email, emailRules...),
	)
}

// ValidateResetPassword проверяет запрос на установку нового пароля
func ValidateResetPassword(req *api.ResetPasswordRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.VerificationCode, codeRules...),
		validation.Field(&req.Password, passwordRules...),
	)
}

// ValidateCode checks a verification code taken from a URL path.
func ValidateCode(code string) error {
	return validation.Validate(code, codeRules...)
}

// ValidateEmail checks a single email address.
func ValidateEmail(email string) error {
	return validation.Validate(email, emailRules...)
}

func equals(want string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != want {
			return ErrPasswordMismatch
		}
		return nil
	}
}
