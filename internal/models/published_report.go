package models

import (
	"time"

	"ledgerbook/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PublishedReport is an immutable public snapshot of the ledger totals.
// Newer reports supersede older ones; nothing is ever updated in place.
type PublishedReport struct {
	ID            string                `gorm:"type:uuid;primaryKey" json:"id"`
	TotalIncome   decimal.Decimal       `gorm:"type:numeric(14,2);not null" json:"total_income"`
	TotalExpenses decimal.Decimal       `gorm:"type:numeric(14,2);not null" json:"total_expenses"`
	Balance       decimal.Decimal       `gorm:"type:numeric(14,2);not null" json:"balance"`
	PublishedAt   time.Time             `gorm:"not null;index" json:"published_at"`
	PublishedByID *string               `gorm:"type:uuid" json:"published_by_id"`
	Lines         []PublishedReportLine `gorm:"foreignKey:ReportID" json:"income_by_task"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (r *PublishedReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New()
	}
	return nil
}

// PublishedReportLine is the frozen per-task income of a published report.
type PublishedReportLine struct {
	ID               string          `gorm:"type:uuid;primaryKey" json:"-"`
	ReportID         string          `gorm:"type:uuid;not null;index" json:"-"`
	Position         int             `gorm:"not null" json:"-"`
	TaskID           string          `gorm:"type:uuid;not null" json:"task_id"`
	TaskName         string          `gorm:"not null" json:"task_name"`
	Total            decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	ReceiptBookCount int64           `gorm:"not null" json:"receipt_book_count"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (l *PublishedReportLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New()
	}
	return nil
}
