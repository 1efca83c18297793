package serverutils

import (
	"regexp"

	"ai-assistant-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func newValidator() *validator.Validate {
	v := validator.New()
	// session ids travel in URLs and cache keys; keep them to a safe
	// alphabet.
	_ = v.RegisterValidation("session_id", func(fl validator.FieldLevel) bool {
		return sessionIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateSessionID applies the session id rule to path-supplied ids,
// the same constraint body payloads carry via the `session_id` tag.
func ValidateSessionID(id string) error {
	if id == "" || len(id) > 100 || !sessionIDPattern.MatchString(id) {
		return apperror.Validation("session id must be 1-100 characters of letters, digits, '-' or '_'")
	}
	return nil
}

// ValidateRequest runs struct-tag validation and converts failures to
// the shared validation error category.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return apperror.Validation("field %s failed rule %s", f.Field(), f.Tag())
		}
		return apperror.Wrap(apperror.ErrValidation, err)
	}
	return nil
}
