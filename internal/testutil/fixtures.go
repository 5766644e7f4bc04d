package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ledgerbook/internal/authz"
	"ledgerbook/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active user with the given role and a unique username.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	return CreateTestUserWithUsername(t, db, fmt.Sprintf("%s%d", role, nextID()), role)
}

// CreateTestUserWithUsername creates an active user with the given username and role.
func CreateTestUserWithUsername(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username: username,
		Password: string(hash),
		FullName: "Test " + username,
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// IdentityOf returns the request identity of a fixture user.
func IdentityOf(u *models.User) authz.Identity {
	return authz.Identity{UserID: u.ID, Role: u.Role}
}

// CreateTestTask creates a task with a unique name.
func CreateTestTask(t *testing.T, db *gorm.DB) *models.Task {
	t.Helper()

	task := &models.Task{
		Name:        fmt.Sprintf("Test Task %d", nextID()),
		Description: "fixture",
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

// CreateTestBook creates an active, unassigned receipt book for [start, end].
func CreateTestBook(t *testing.T, db *gorm.DB, taskID, createdByID string, start, end int64) *models.ReceiptBook {
	t.Helper()

	book := &models.ReceiptBook{
		BookNumber:  fmt.Sprintf("BK-%d", nextID()),
		TaskID:      taskID,
		StartNumber: start,
		EndNumber:   end,
		Status:      models.BookStatusActive,
		CreatedByID: createdByID,
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("failed to create test receipt book: %v", err)
	}
	return book
}

// AssignTestBook hands book to userID directly in the database.
func AssignTestBook(t *testing.T, db *gorm.DB, book *models.ReceiptBook, userID string) {
	t.Helper()

	if err := db.Model(book).Update("assigned_to_id", userID).Error; err != nil {
		t.Fatalf("failed to assign test receipt book: %v", err)
	}
	book.AssignedToID = &userID
}

// CreateTestReceipt inserts a receipt without going through the service checks.
func CreateTestReceipt(t *testing.T, db *gorm.DB, book *models.ReceiptBook, number int64, amount, issuedByID string) *models.Receipt {
	t.Helper()

	receipt := &models.Receipt{
		Number:        number,
		ReceiptBookID: book.ID,
		TaskID:        book.TaskID,
		GiverName:     fmt.Sprintf("Giver %d", nextID()),
		Address:       "1 Temple Road",
		Amount:        decimal.RequireFromString(amount),
		IssuedByID:    issuedByID,
	}
	if err := db.Create(receipt).Error; err != nil {
		t.Fatalf("failed to create test receipt: %v", err)
	}
	return receipt
}

// CreateTestExpenseType creates an expense type with a unique name.
func CreateTestExpenseType(t *testing.T, db *gorm.DB) *models.ExpenseType {
	t.Helper()

	et := &models.ExpenseType{Name: fmt.Sprintf("Expense Type %d", nextID())}
	if err := db.Create(et).Error; err != nil {
		t.Fatalf("failed to create test expense type: %v", err)
	}
	return et
}

// CreateTestExpense records an expense of amount on date.
func CreateTestExpense(t *testing.T, db *gorm.DB, expenseTypeID, amount string, date time.Time, recordedByID string) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		ExpenseTypeID: expenseTypeID,
		Amount:        decimal.RequireFromString(amount),
		Description:   "fixture expense",
		Date:          date,
		RecordedByID:  recordedByID,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}
