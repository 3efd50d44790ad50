package config

import (
	"slices"

	"github.com/go-playground/validator/v10"
)

var postgresSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("ssl_mode", validateSSLMode)
}

// validateSSLMode accepts the sslmode values libpq understands
func validateSSLMode(fl validator.FieldLevel) bool {
	return slices.Contains(postgresSSLModes, fl.Field().String())
}
