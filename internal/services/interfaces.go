package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgerbook/internal/authz"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
)

// CreateUserInput holds the fields of a new account.
type CreateUserInput struct {
	Username string
	Password string
	FullName string
	Role     models.Role
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, actor authz.Identity, input CreateUserInput) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context, actor authz.Identity, role *models.Role, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	SetUserActive(ctx context.Context, actor authz.Identity, id string, active bool) (*models.User, error)
	DeleteUser(ctx context.Context, actor authz.Identity, id string) error
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, username, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// TaskServicer defines the contract for the task catalogue.
type TaskServicer interface {
	CreateTask(ctx context.Context, actor authz.Identity, name, description string) (*models.Task, error)
	GetTask(ctx context.Context, actor authz.Identity, id string) (*models.Task, error)
	ListTasks(ctx context.Context, actor authz.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.Task], error)
	UpdateTask(ctx context.Context, actor authz.Identity, id, name, description string) (*models.Task, error)
	DeleteTask(ctx context.Context, actor authz.Identity, id string) error
}

// CreateBookInput holds the fields of a new receipt book.
type CreateBookInput struct {
	BookNumber string
	TaskID     string
	Start      int64
	End        int64
}

// BookFilter holds optional filter parameters for listing receipt books.
type BookFilter struct {
	TaskID     *string
	AssignedTo *string
	Status     *models.BookStatus
}

// ReceiptBookServicer defines the contract for receipt book allocation.
type ReceiptBookServicer interface {
	CreateBook(ctx context.Context, actor authz.Identity, input CreateBookInput) (*models.ReceiptBook, error)
	GetBook(ctx context.Context, actor authz.Identity, id string) (*models.ReceiptBook, error)
	ListBooks(ctx context.Context, actor authz.Identity, filter BookFilter, page pagination.PageRequest) (*pagination.PageResponse[models.ReceiptBook], error)
	AssignBook(ctx context.Context, actor authz.Identity, bookID, userID string) (*models.ReceiptBook, error)
	CloseBook(ctx context.Context, actor authz.Identity, bookID string) (*models.ReceiptBook, error)
	UpdateBookRange(ctx context.Context, actor authz.Identity, bookID string, start, end int64) (*models.ReceiptBook, error)
	NextAvailableNumber(ctx context.Context, actor authz.Identity, bookID string) (int64, error)
}

// IssueReceiptInput holds the fields of a new receipt. An empty TaskID
// means the book's task.
type IssueReceiptInput struct {
	BookID    string
	Number    int64
	TaskID    string
	GiverName string
	Address   string
	Phone     string
	Amount    decimal.Decimal
}

// UpdateReceiptInput holds the fields to change on a receipt. Nil fields keep
// their current value.
type UpdateReceiptInput struct {
	BookID    *string
	Number    *int64
	TaskID    *string
	GiverName *string
	Address   *string
	Phone     *string
	Amount    *decimal.Decimal
}

// Receipt list orderings.
const (
	ReceiptSortCreatedAt = "created_at"
	ReceiptSortNumber    = "number"
)

// ReceiptFilter holds optional filter parameters for listing receipts.
type ReceiptFilter struct {
	BookID   *string
	TaskID   *string
	IssuedBy *string
	FromDate *time.Time
	ToDate   *time.Time
	Sort     string
}

// ReceiptServicer defines the contract for the receipt ledger.
type ReceiptServicer interface {
	IssueReceipt(ctx context.Context, actor authz.Identity, input IssueReceiptInput) (*models.Receipt, error)
	UpdateReceipt(ctx context.Context, actor authz.Identity, id string, input UpdateReceiptInput) (*models.Receipt, error)
	GetReceipt(ctx context.Context, actor authz.Identity, id string) (*models.Receipt, error)
	ListReceipts(ctx context.Context, actor authz.Identity, filter ReceiptFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Receipt], error)
}

// RecordExpenseInput holds the fields of a new expense.
type RecordExpenseInput struct {
	ExpenseTypeID string
	Amount        decimal.Decimal
	Description   string
	Date          time.Time
}

// ExpenseFilter holds optional filter parameters for listing expenses.
type ExpenseFilter struct {
	ExpenseTypeID *string
	FromDate      *time.Time
	ToDate        *time.Time
}

// ExpenseServicer defines the contract for expense types and the expense log.
type ExpenseServicer interface {
	CreateExpenseType(ctx context.Context, actor authz.Identity, name string) (*models.ExpenseType, error)
	ListExpenseTypes(ctx context.Context, actor authz.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.ExpenseType], error)
	UpdateExpenseType(ctx context.Context, actor authz.Identity, id, name string) (*models.ExpenseType, error)
	DeleteExpenseType(ctx context.Context, actor authz.Identity, id string) error
	RecordExpense(ctx context.Context, actor authz.Identity, input RecordExpenseInput) (*models.Expense, error)
	GetExpense(ctx context.Context, actor authz.Identity, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, actor authz.Identity, filter ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
}

// TotalsFilter narrows an aggregation. TaskID applies to income only.
type TotalsFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	TaskID   *string
}

// TaskIncome is one row of the per-task income breakdown.
type TaskIncome struct {
	TaskID           string          `json:"task_id"`
	TaskName         string          `json:"task_name"`
	Total            decimal.Decimal `json:"total"`
	ReceiptBookCount int64           `json:"receipt_book_count"`
}

// Totals is the aggregator's view of the ledgers.
type Totals struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Balance       decimal.Decimal `json:"balance"`
	IncomeByTask  []TaskIncome    `json:"income_by_task"`
}

// AggregatorServicer computes totals. It performs no authorization; callers
// facing users go through ReportServicer.Financials.
type AggregatorServicer interface {
	ComputeTotals(ctx context.Context, filter TotalsFilter) (*Totals, error)
	SnapshotTotals(tx *gorm.DB) (*Totals, error)
}

// ReportServicer defines the contract for live financials and published reports.
type ReportServicer interface {
	Financials(ctx context.Context, actor authz.Identity, filter TotalsFilter) (*Totals, error)
	Publish(ctx context.Context, actor authz.Identity) (*models.PublishedReport, error)
	GetLatestPublished(ctx context.Context) (*models.PublishedReport, error)
	ListPublished(ctx context.Context, actor authz.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.PublishedReport], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actor authz.Identity, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
