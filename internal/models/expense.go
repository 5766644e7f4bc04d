package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseType groups expenses, e.g. "Utilities".
type ExpenseType struct {
	Base
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Expense is an append-only outgoing payment.
type Expense struct {
	Base
	ExpenseTypeID string          `gorm:"type:uuid;not null;index" json:"expense_type_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description   string          `json:"description"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	RecordedByID  string          `gorm:"type:uuid;not null" json:"recorded_by_id"`

	ExpenseType *ExpenseType `gorm:"foreignKey:ExpenseTypeID" json:"expense_type,omitempty"`
}
