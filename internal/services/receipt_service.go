package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"ledgerbook/internal/authz"
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
)

// receiptService records donation receipts.
type receiptService struct {
	db *gorm.DB
}

// NewReceiptService creates a new ReceiptServicer.
func NewReceiptService(db *gorm.DB) ReceiptServicer {
	return &receiptService{db: db}
}

// IssueReceipt records a receipt against a book. Checks run in a fixed
// order and all of them happen before the single INSERT; the unique index
// on (receipt_book_id, number) decides races between concurrent callers.
// The book row is share-locked so a range edit or close cannot slip in
// between the range check and the insert.
func (s *receiptService) IssueReceipt(ctx context.Context, actor authz.Identity, input IssueReceiptInput) (*models.Receipt, error) {
	var receipt *models.Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := findBook(lockShared(tx), input.BookID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(actor, authz.ActionIssueReceipt, authz.Own(book.AssignedToID)); err != nil {
			return err
		}
		if book.Status == models.BookStatusClosed {
			return apperrors.ErrBookClosed
		}

		taskID, err := resolveTask(book, input.TaskID)
		if err != nil {
			return err
		}
		if !book.Contains(input.Number) {
			return apperrors.ErrReceiptOutOfRange
		}

		amount, err := money(input.Amount)
		if err != nil {
			return err
		}
		giver := strings.TrimSpace(input.GiverName)
		if giver == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "giver name is required")
		}

		receipt = &models.Receipt{
			Number:        input.Number,
			ReceiptBookID: book.ID,
			TaskID:        taskID,
			GiverName:     giver,
			Address:       strings.TrimSpace(input.Address),
			Phone:         strings.TrimSpace(input.Phone),
			Amount:        amount,
			IssuedByID:    actor.UserID,
		}
		return tx.Create(receipt).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateReceiptNumber
		}
		return nil, asAppError(err)
	}
	return receipt, nil
}

// UpdateReceipt edits a receipt. The result is validated from scratch as if
// it were being issued now, against the target book.
func (s *receiptService) UpdateReceipt(ctx context.Context, actor authz.Identity, id string, input UpdateReceiptInput) (*models.Receipt, error) {
	if err := authz.Authorize(actor, authz.ActionEditReceipt, authz.Resource{}); err != nil {
		return nil, err
	}

	var receipt models.Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Where("id = ?", id).First(&receipt).Error; err != nil {
			return notFoundOr(err, apperrors.ErrReceiptNotFound)
		}

		bookID := receipt.ReceiptBookID
		if input.BookID != nil {
			bookID = *input.BookID
		}
		book, err := findBook(lockShared(tx), bookID)
		if err != nil {
			return err
		}
		if book.ID != receipt.ReceiptBookID && book.Status == models.BookStatusClosed {
			return apperrors.ErrBookClosed
		}

		requestedTask := ""
		if input.TaskID != nil {
			requestedTask = *input.TaskID
		}
		taskID, err := resolveTask(book, requestedTask)
		if err != nil {
			return err
		}

		number := receipt.Number
		if input.Number != nil {
			number = *input.Number
		}
		if !book.Contains(number) {
			return apperrors.ErrReceiptOutOfRange
		}

		amount := receipt.Amount
		if input.Amount != nil {
			amount = *input.Amount
		}
		if amount, err = money(amount); err != nil {
			return err
		}

		if input.GiverName != nil {
			receipt.GiverName = strings.TrimSpace(*input.GiverName)
		}
		if receipt.GiverName == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "giver name is required")
		}
		if input.Address != nil {
			receipt.Address = strings.TrimSpace(*input.Address)
		}
		if input.Phone != nil {
			receipt.Phone = strings.TrimSpace(*input.Phone)
		}

		receipt.ReceiptBookID = book.ID
		receipt.TaskID = taskID
		receipt.Number = number
		receipt.Amount = amount

		return tx.Model(&receipt).
			Select("receipt_book_id", "number", "task_id", "giver_name", "address", "phone", "amount", "updated_at").
			Updates(&receipt).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateReceiptNumber
		}
		return nil, asAppError(err)
	}
	return &receipt, nil
}

// GetReceipt returns a receipt with its book and task. Collectors may only
// read receipts from books currently assigned to them.
func (s *receiptService) GetReceipt(ctx context.Context, actor authz.Identity, id string) (*models.Receipt, error) {
	var receipt models.Receipt
	err := s.db.WithContext(ctx).
		Preload("ReceiptBook").
		Preload("Task").
		Where("id = ?", id).
		First(&receipt).Error
	if err != nil {
		return nil, notFoundOr(err, apperrors.ErrReceiptNotFound)
	}

	var holder *string
	if receipt.ReceiptBook != nil {
		holder = receipt.ReceiptBook.AssignedToID
	}
	if err := authz.Authorize(actor, authz.ActionViewReceipts, authz.Own(holder)); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListReceipts returns receipts newest first, or by number with
// Sort == ReceiptSortNumber. Both orders break ties on id.
func (s *receiptService) ListReceipts(ctx context.Context, actor authz.Identity, filter ReceiptFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Receipt], error) {
	if err := authz.Require(actor, authz.ActionViewReceipts); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&models.Receipt{})
	if authz.IsScoped(actor, authz.ActionViewReceipts) {
		query = query.Where("receipt_book_id IN (?)",
			db.Model(&models.ReceiptBook{}).Select("id").Where("assigned_to_id = ?", actor.UserID))
	}
	if filter.BookID != nil {
		query = query.Where("receipt_book_id = ?", *filter.BookID)
	}
	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}
	if filter.IssuedBy != nil {
		query = query.Where("issued_by_id = ?", *filter.IssuedBy)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}

	switch filter.Sort {
	case "", ReceiptSortCreatedAt:
		query = query.Order("created_at DESC, id DESC")
	case ReceiptSortNumber:
		query = query.Order("number ASC, id ASC")
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "sort must be created_at or number")
	}

	resp, err := pagination.Find[models.Receipt](query, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &resp, nil
}

// resolveTask returns the book's task, rejecting an explicit different one.
func resolveTask(book *models.ReceiptBook, requested string) (string, error) {
	if requested == "" || requested == book.TaskID {
		return book.TaskID, nil
	}
	return "", apperrors.ErrTaskMismatch
}
