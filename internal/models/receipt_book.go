package models

import "time"

// BookStatus is the stored lifecycle state of a receipt book.
type BookStatus string

const (
	BookStatusActive BookStatus = "active"
	BookStatusClosed BookStatus = "closed"
	// BookStatusExhausted is never stored; it is derived once every number
	// in the range has been issued.
	BookStatusExhausted BookStatus = "exhausted"
)

// ReceiptBook reserves the contiguous range [StartNumber, EndNumber] for one task.
type ReceiptBook struct {
	Base
	BookNumber   string     `gorm:"uniqueIndex;not null" json:"book_number"`
	TaskID       string     `gorm:"type:uuid;not null;index" json:"task_id"`
	StartNumber  int64      `gorm:"not null" json:"start_number"`
	EndNumber    int64      `gorm:"not null" json:"end_number"`
	AssignedToID *string    `gorm:"type:uuid;index" json:"assigned_to_id"`
	Status       BookStatus `gorm:"not null;default:'active'" json:"status"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedByID  string     `gorm:"type:uuid;not null" json:"created_by_id"`

	// Populated at query time from the receipts table
	IssuedCount int64  `gorm:"-" json:"issued_count"`
	NextNumber  *int64 `gorm:"-" json:"next_number"` // nil once the highest number is issued, even with gaps left

	Task       *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	AssignedTo *User `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
}

// Size returns how many receipt numbers the book holds.
func (b *ReceiptBook) Size() int64 {
	return b.EndNumber - b.StartNumber + 1
}

// Contains reports whether n falls inside the book's range.
func (b *ReceiptBook) Contains(n int64) bool {
	return n >= b.StartNumber && n <= b.EndNumber
}

// EffectiveStatus folds the derived exhausted state into the stored status.
// Closed wins over exhausted. Exhausted means every number is used, while
// NextNumber follows the highest issued number. A book holding only its last
// number is therefore active with a nil NextNumber: the lower numbers can
// still be issued explicitly but are never suggested.
func (b *ReceiptBook) EffectiveStatus() BookStatus {
	if b.Status == BookStatusClosed {
		return BookStatusClosed
	}
	if b.IssuedCount >= b.Size() {
		return BookStatusExhausted
	}
	return BookStatusActive
}

// IsAssignedTo reports whether userID currently holds the book.
func (b *ReceiptBook) IsAssignedTo(userID string) bool {
	return b.AssignedToID != nil && *b.AssignedToID == userID
}
