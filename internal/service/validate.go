package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/platebook/platebook-server/internal/errors"
)

// validate is a shared validator instance for request validation.
var validate = func() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for field names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove any options (like omitempty, -)
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})
	// Price fields are decimal strings, max 5 digits with 2 decimal places.
	//nolint:errcheck // RegisterValidation only errors on an empty tag name
	_ = v.RegisterValidation("price", validPrice)
	return v
}()

// validPrice checks a decimal string: at most 5 digits total,
// at most 2 of them after the decimal point. Matches values like
// "5", "12.50", "999.99".
func validPrice(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if intPart == "" {
		return false
	}
	if hasFrac && (fracPart == "" || len(fracPart) > 2) {
		return false
	}
	if len(intPart)+len(fracPart) > 5 {
		return false
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// formatValidationError converts validator errors to user-friendly domain errors.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		// Return first validation error as a domain error
		for _, e := range validationErrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				return domainerrors.Validationf("%s is required", field)
			case "email":
				return domainerrors.Validationf("%s must be a valid email address", field)
			case "min":
				return domainerrors.Validationf("%s must be at least %s characters", field, e.Param())
			case "max":
				return domainerrors.Validationf("%s exceeds maximum length of %s characters", field, e.Param())
			case "gte":
				return domainerrors.Validationf("%s must be at least %s", field, e.Param())
			case "price":
				return domainerrors.Validationf("%s must be a decimal with at most 5 digits and 2 decimal places", field)
			default:
				return domainerrors.Validationf("%s is invalid", field)
			}
		}
	}
	return err
}

// parseIDList parses a comma-separated list of entity IDs from a query
// parameter. Empty or whitespace-containing tokens are a client error.
func parseIDList(param, raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" || strings.ContainsAny(token, " \t") {
			return nil, domainerrors.Validationf("%s contains a malformed ID: %q", param, part)
		}
		ids = append(ids, token)
	}
	return ids, nil
}

// parseAssignedOnly parses the assigned_only query parameter.
// Only "0" and "1" are accepted; an empty string means not set.
func parseAssignedOnly(raw string) (bool, error) {
	switch raw {
	case "", "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, domainerrors.Validationf("assigned_only must be 0 or 1, got %q", raw)
	}
}
