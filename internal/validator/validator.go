// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"ledgerbook/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{2,49}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("user_role", validateUserRole)
		_ = v.RegisterValidation("username", validateUsername)
		_ = v.RegisterValidation("receipt_sort", validateReceiptSort)
		_ = v.RegisterValidation("book_status", validateBookStatus)
	}
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func validateReceiptSort(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "created_at", "number":
		return true
	}
	return false
}

func validateBookStatus(fl validator.FieldLevel) bool {
	switch models.BookStatus(fl.Field().String()) {
	case "", models.BookStatusActive, models.BookStatusClosed, models.BookStatusExhausted:
		return true
	}
	return false
}
