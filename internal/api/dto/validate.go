package dto

import (
	"errors"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

var validate = validator.New()

// Validate runs struct-tag validation on a payload and converts failures
// into a field-keyed validation error.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(validationErrs))
	for _, fieldErr := range validationErrs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return apperrors.NewValidationError("invalid payload", details)
}
