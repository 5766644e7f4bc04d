package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	for tag, fn := range map[string]validator.Func{
		"user_role":    validateUserRole,
		"username":     validateUsername,
		"receipt_sort": validateReceiptSort,
		"book_status":  validateBookStatus,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			t.Fatalf("register %s: %v", tag, err)
		}
	}
	return v
}

func TestCustomValidators(t *testing.T) {
	v := newValidate(t)

	tests := []struct {
		tag   string
		value string
		valid bool
	}{
		{"user_role", "admin", true},
		{"user_role", "manager", true},
		{"user_role", "cash_collector", true},
		{"user_role", "treasurer", false},
		{"username", "collector.one", true},
		{"username", "ab", false},
		{"username", "bad name", false},
		{"receipt_sort", "", true},
		{"receipt_sort", "number", true},
		{"receipt_sort", "amount", false},
		{"book_status", "exhausted", true},
		{"book_status", "archived", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag+"_"+tt.value, func(t *testing.T) {
			err := v.Var(tt.value, tt.tag)
			if tt.valid && err != nil {
				t.Errorf("expected %q to pass %s: %v", tt.value, tt.tag, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected %q to fail %s", tt.value, tt.tag)
			}
		})
	}
}
