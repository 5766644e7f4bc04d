package models

import "github.com/shopspring/decimal"

// Receipt is one donation slip. (ReceiptBookID, Number) is unique; the
// database index is the only guard against two collectors issuing the same
// number concurrently.
type Receipt struct {
	Base
	Number        int64           `gorm:"not null;uniqueIndex:uq_receipts_book_number,priority:2" json:"number"`
	ReceiptBookID string          `gorm:"type:uuid;not null;uniqueIndex:uq_receipts_book_number,priority:1" json:"receipt_book_id"`
	TaskID        string          `gorm:"type:uuid;not null;index" json:"task_id"`
	GiverName     string          `gorm:"not null" json:"giver_name"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	IssuedByID    string          `gorm:"type:uuid;not null;index" json:"issued_by_id"`

	ReceiptBook *ReceiptBook `gorm:"foreignKey:ReceiptBookID" json:"receipt_book,omitempty"`
	Task        *Task        `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}
