package models

// Task is an income category such as "Construction". Receipt books and
// receipts are always tied to exactly one task.
type Task struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
}
