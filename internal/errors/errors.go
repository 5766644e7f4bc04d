// Package errors provides custom error types for the ledgerbook API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError so callers can react to a family of failures
// without matching on individual codes.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindRangeExhausted Kind = "range_exhausted"
	KindDuplicate      Kind = "duplicate"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

// AppError represents a structured application error with an error code,
// kind, human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so sentinel
// comparisons keep working after Wrap or WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Kind:       sentinel.Kind,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Kind:       sentinel.Kind,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// KindOf returns the kind of err, or KindInternal for anything that is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Kind: KindAuthorization, Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Kind: KindAuthorization, Message: "Invalid username or password", StatusCode: http.StatusUnauthorized}
	ErrInvalidToken       = &AppError{Code: "INVALID_TOKEN", Kind: KindAuthorization, Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Kind: KindAuthorization, Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Kind: KindAuthorization, Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Kind: KindValidation, Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Kind: KindNotFound, Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Kind: KindInternal, Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound      = &AppError{Code: "USER_NOT_FOUND", Kind: KindNotFound, Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateUsername = &AppError{Code: "DUPLICATE_USERNAME", Kind: KindValidation, Message: "A user with this username already exists", StatusCode: http.StatusConflict}
	ErrUserInUse         = &AppError{Code: "USER_IN_USE", Kind: KindConflict, Message: "User is referenced by ledger records", StatusCode: http.StatusConflict}
)

// Task errors.
var (
	ErrTaskNotFound  = &AppError{Code: "TASK_NOT_FOUND", Kind: KindNotFound, Message: "Task not found", StatusCode: http.StatusNotFound}
	ErrDuplicateTask = &AppError{Code: "DUPLICATE_TASK", Kind: KindValidation, Message: "A task with this name already exists", StatusCode: http.StatusConflict}
	ErrTaskInUse     = &AppError{Code: "TASK_IN_USE", Kind: KindConflict, Message: "Task is used by existing receipt books", StatusCode: http.StatusConflict}
)

// Receipt book errors.
var (
	ErrBookNotFound        = &AppError{Code: "BOOK_NOT_FOUND", Kind: KindNotFound, Message: "Receipt book not found", StatusCode: http.StatusNotFound}
	ErrDuplicateBookNumber = &AppError{Code: "DUPLICATE_BOOK_NUMBER", Kind: KindValidation, Message: "A receipt book with this number already exists", StatusCode: http.StatusConflict}
	ErrInvalidBookRange    = &AppError{Code: "INVALID_BOOK_RANGE", Kind: KindValidation, Message: "Start number must be positive and not greater than end number", StatusCode: http.StatusBadRequest}
	ErrBookRangeLocked     = &AppError{Code: "BOOK_RANGE_LOCKED", Kind: KindConflict, Message: "Range cannot change once receipts have been issued", StatusCode: http.StatusConflict}
	ErrBookClosed          = &AppError{Code: "BOOK_CLOSED", Kind: KindConflict, Message: "Receipt book is closed", StatusCode: http.StatusConflict}
	ErrRangeExhausted      = &AppError{Code: "RANGE_EXHAUSTED", Kind: KindRangeExhausted, Message: "All receipt numbers in this book have been issued", StatusCode: http.StatusConflict}
	ErrInvalidAssignee     = &AppError{Code: "INVALID_ASSIGNEE", Kind: KindValidation, Message: "Receipt books can only be assigned to active cash collectors", StatusCode: http.StatusBadRequest}
)

// Receipt errors.
var (
	ErrReceiptNotFound        = &AppError{Code: "RECEIPT_NOT_FOUND", Kind: KindNotFound, Message: "Receipt not found", StatusCode: http.StatusNotFound}
	ErrReceiptOutOfRange      = &AppError{Code: "RECEIPT_NUMBER_OUT_OF_RANGE", Kind: KindValidation, Message: "Receipt number is outside the book's range", StatusCode: http.StatusBadRequest}
	ErrDuplicateReceiptNumber = &AppError{Code: "DUPLICATE_RECEIPT_NUMBER", Kind: KindDuplicate, Message: "This receipt number has already been issued in this book", StatusCode: http.StatusConflict}
	ErrTaskMismatch           = &AppError{Code: "TASK_MISMATCH", Kind: KindValidation, Message: "Receipt task must match the receipt book's task", StatusCode: http.StatusBadRequest}
	ErrInvalidAmount          = &AppError{Code: "INVALID_AMOUNT", Kind: KindValidation, Message: "Amount must be greater than zero", StatusCode: http.StatusBadRequest}
	ErrAmountTooLarge         = &AppError{Code: "INVALID_AMOUNT", Kind: KindValidation, Message: "Amount must be less than 1000000000000", StatusCode: http.StatusBadRequest}
)

// Expense errors.
var (
	ErrExpenseTypeNotFound  = &AppError{Code: "EXPENSE_TYPE_NOT_FOUND", Kind: KindNotFound, Message: "Expense type not found", StatusCode: http.StatusNotFound}
	ErrDuplicateExpenseType = &AppError{Code: "DUPLICATE_EXPENSE_TYPE", Kind: KindValidation, Message: "An expense type with this name already exists", StatusCode: http.StatusConflict}
	ErrExpenseTypeInUse     = &AppError{Code: "EXPENSE_TYPE_IN_USE", Kind: KindConflict, Message: "Expense type is used by recorded expenses", StatusCode: http.StatusConflict}
	ErrExpenseNotFound      = &AppError{Code: "EXPENSE_NOT_FOUND", Kind: KindNotFound, Message: "Expense not found", StatusCode: http.StatusNotFound}
)

// Report errors.
var (
	ErrReportNotFound = &AppError{Code: "REPORT_NOT_FOUND", Kind: KindNotFound, Message: "No report has been published yet", StatusCode: http.StatusNotFound}
)
