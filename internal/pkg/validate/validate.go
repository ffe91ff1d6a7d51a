package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/medmarket-api/internal/domain"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New(validator.WithRequiredStructEnabled())

func init() {
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.ValidRole(fl.Field().String())
	})
	_ = v.RegisterValidation("intent", func(fl validator.FieldLevel) bool {
		return domain.OTPIntent(fl.Field().String()).Valid()
	})
}

// Struct validates the given struct using its validate tags.
// Returns an error wrapping domain.ErrBadRequest with a human-readable message, or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), domain.ErrBadRequest)
	}
	return nil
}
