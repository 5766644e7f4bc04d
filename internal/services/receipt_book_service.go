package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"gorm.io/gorm"

	"ledgerbook/internal/authz"
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
)

// issuedCountSQL counts the receipts of the receipt_books row in scope.
const issuedCountSQL = "(SELECT COUNT(*) FROM receipts WHERE receipts.receipt_book_id = receipt_books.id)"

// receiptBookService allocates receipt number ranges.
type receiptBookService struct {
	db *gorm.DB
}

// NewReceiptBookService creates a new ReceiptBookServicer.
func NewReceiptBookService(db *gorm.DB) ReceiptBookServicer {
	return &receiptBookService{db: db}
}

// CreateBook reserves [Start, End] for a task. The book starts active and unassigned.
func (s *receiptBookService) CreateBook(ctx context.Context, actor authz.Identity, input CreateBookInput) (*models.ReceiptBook, error) {
	if err := authz.Authorize(actor, authz.ActionCreateBook, authz.Resource{}); err != nil {
		return nil, err
	}

	bookNumber := strings.TrimSpace(input.BookNumber)
	if bookNumber == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "book number is required")
	}
	if err := validateRange(input.Start, input.End); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := taskExists(db, input.TaskID); err != nil {
		return nil, err
	}

	book := &models.ReceiptBook{
		BookNumber:  bookNumber,
		TaskID:      input.TaskID,
		StartNumber: input.Start,
		EndNumber:   input.End,
		Status:      models.BookStatusActive,
		CreatedByID: actor.UserID,
	}
	if err := db.Create(book).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateBookNumber
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	start := book.StartNumber
	book.NextNumber = &start
	return book, nil
}

// GetBook returns a book with its derived counters. Collectors may only
// read books assigned to them.
func (s *receiptBookService) GetBook(ctx context.Context, actor authz.Identity, id string) (*models.ReceiptBook, error) {
	db := s.db.WithContext(ctx)
	book, err := findBook(db.Preload("Task").Preload("AssignedTo"), id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionViewBook, authz.Own(book.AssignedToID)); err != nil {
		return nil, err
	}
	if err := hydrateBooks(db, []*models.ReceiptBook{book}); err != nil {
		return nil, err
	}
	return book, nil
}

// ListBooks returns books ordered by book number. Collectors only see
// books currently assigned to them.
func (s *receiptBookService) ListBooks(ctx context.Context, actor authz.Identity, filter BookFilter, page pagination.PageRequest) (*pagination.PageResponse[models.ReceiptBook], error) {
	if err := authz.Require(actor, authz.ActionViewBook); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&models.ReceiptBook{})
	if authz.IsScoped(actor, authz.ActionViewBook) {
		query = query.Where("assigned_to_id = ?", actor.UserID)
	}
	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedTo)
	}
	if filter.Status != nil {
		switch *filter.Status {
		case models.BookStatusClosed:
			query = query.Where("status = ?", models.BookStatusClosed)
		case models.BookStatusExhausted:
			query = query.Where("status = ? AND "+issuedCountSQL+" >= end_number - start_number + 1", models.BookStatusActive)
		case models.BookStatusActive:
			query = query.Where("status = ? AND "+issuedCountSQL+" < end_number - start_number + 1", models.BookStatusActive)
		default:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be active, exhausted or closed")
		}
	}

	resp, err := pagination.Find[models.ReceiptBook](query.Order("book_number ASC, id ASC"), page, "Task", "AssignedTo")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	books := make([]*models.ReceiptBook, len(resp.Data))
	for i := range resp.Data {
		books[i] = &resp.Data[i]
	}
	if err := hydrateBooks(db, books); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AssignBook hands a book to an active cash collector. Reassigning replaces
// the previous holder, who loses issuance rights immediately.
func (s *receiptBookService) AssignBook(ctx context.Context, actor authz.Identity, bookID, userID string) (*models.ReceiptBook, error) {
	if err := authz.Authorize(actor, authz.ActionAssignBook, authz.Resource{}); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	book, err := findBook(db, bookID)
	if err != nil {
		return nil, err
	}
	if book.Status == models.BookStatusClosed {
		return nil, apperrors.ErrBookClosed
	}

	var assignee models.User
	if err := db.Where("id = ?", userID).First(&assignee).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrUserNotFound)
	}
	if assignee.Role != models.RoleCashCollector || !assignee.IsActive {
		return nil, apperrors.ErrInvalidAssignee
	}

	if !book.IsAssignedTo(userID) {
		if err := db.Model(book).Update("assigned_to_id", userID).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		book.AssignedToID = &assignee.ID
	}
	book.AssignedTo = &assignee

	if err := hydrateBooks(db, []*models.ReceiptBook{book}); err != nil {
		return nil, err
	}
	return book, nil
}

// CloseBook stops further issuance on a book. Closing a closed book is a no-op.
func (s *receiptBookService) CloseBook(ctx context.Context, actor authz.Identity, bookID string) (*models.ReceiptBook, error) {
	if err := authz.Authorize(actor, authz.ActionCloseBook, authz.Resource{}); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	book, err := findBook(db, bookID)
	if err != nil {
		return nil, err
	}

	if book.Status != models.BookStatusClosed {
		now := time.Now()
		err := db.Model(book).Updates(map[string]any{
			"status":    models.BookStatusClosed,
			"closed_at": now,
		}).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		book.Status = models.BookStatusClosed
		book.ClosedAt = &now
	}

	if err := hydrateBooks(db, []*models.ReceiptBook{book}); err != nil {
		return nil, err
	}
	return book, nil
}

// UpdateBookRange corrects the bounds of a book that has no receipts yet.
// The book row is locked for update, which waits out any issuer holding a
// share lock so the receipt count below cannot go stale before commit.
func (s *receiptBookService) UpdateBookRange(ctx context.Context, actor authz.Identity, bookID string, start, end int64) (*models.ReceiptBook, error) {
	if err := authz.Authorize(actor, authz.ActionEditBookRange, authz.Resource{}); err != nil {
		return nil, err
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	var book *models.ReceiptBook
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		book, err = findBook(lockForUpdate(tx), bookID)
		if err != nil {
			return err
		}

		var issued int64
		if err := tx.Model(&models.Receipt{}).Where("receipt_book_id = ?", bookID).Count(&issued).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if issued > 0 {
			return apperrors.ErrBookRangeLocked
		}

		err = tx.Model(book).Updates(map[string]any{
			"start_number": start,
			"end_number":   end,
		}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		book.StartNumber = start
		book.EndNumber = end
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := hydrateBooks(s.db.WithContext(ctx), []*models.ReceiptBook{book}); err != nil {
		return nil, err
	}
	return book, nil
}

// NextAvailableNumber suggests max(number)+1, or the start of the range for
// an empty book. It reserves nothing; IssueReceipt is authoritative.
func (s *receiptBookService) NextAvailableNumber(ctx context.Context, actor authz.Identity, bookID string) (int64, error) {
	db := s.db.WithContext(ctx)
	book, err := findBook(db, bookID)
	if err != nil {
		return 0, err
	}
	if err := authz.Authorize(actor, authz.ActionViewBook, authz.Own(book.AssignedToID)); err != nil {
		return 0, err
	}
	if book.Status == models.BookStatusClosed {
		return 0, apperrors.ErrBookClosed
	}

	var maxNumber sql.NullInt64
	row := db.Model(&models.Receipt{}).Where("receipt_book_id = ?", book.ID).Select("MAX(number)").Row()
	if err := row.Scan(&maxNumber); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	next := nextNumber(book, maxNumber)
	if next == nil {
		return 0, apperrors.ErrRangeExhausted
	}
	return *next, nil
}

func validateRange(start, end int64) error {
	if start < 1 || start > end {
		return apperrors.ErrInvalidBookRange
	}
	return nil
}

func taskExists(db *gorm.DB, taskID string) error {
	if taskID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "task_id is required")
	}
	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

func findBook(db *gorm.DB, id string) (*models.ReceiptBook, error) {
	var book models.ReceiptBook
	if err := db.Where("id = ?", id).First(&book).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrBookNotFound)
	}
	return &book, nil
}

// nextNumber returns the advisory next number, or nil when the range is used up.
func nextNumber(book *models.ReceiptBook, maxNumber sql.NullInt64) *int64 {
	next := book.StartNumber
	if maxNumber.Valid {
		next = maxNumber.Int64 + 1
	}
	if next > book.EndNumber {
		return nil
	}
	return &next
}

type bookUsage struct {
	ReceiptBookID string
	Issued        int64
	MaxNumber     sql.NullInt64
}

// hydrateBooks fills IssuedCount, NextNumber and the derived status.
func hydrateBooks(db *gorm.DB, books []*models.ReceiptBook) error {
	if len(books) == 0 {
		return nil
	}

	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}

	var usage []bookUsage
	err := db.Model(&models.Receipt{}).
		Select("receipt_book_id, COUNT(*) AS issued, MAX(number) AS max_number").
		Where("receipt_book_id IN ?", ids).
		Group("receipt_book_id").
		Scan(&usage).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byBook := make(map[string]bookUsage, len(usage))
	for _, u := range usage {
		byBook[u.ReceiptBookID] = u
	}

	for _, b := range books {
		u := byBook[b.ID]
		b.IssuedCount = u.Issued
		b.NextNumber = nil
		if b.Status != models.BookStatusClosed {
			b.NextNumber = nextNumber(b, u.MaxNumber)
		}
		b.Status = b.EffectiveStatus()
	}
	return nil
}
