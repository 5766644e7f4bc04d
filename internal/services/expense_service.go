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

// expenseService handles expense types and the append-only expense log.
type expenseService struct {
	db *gorm.DB
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB) ExpenseServicer {
	return &expenseService{db: db}
}

// CreateExpenseType adds an expense type
func (s *expenseService) CreateExpenseType(ctx context.Context, actor authz.Identity, name string) (*models.ExpenseType, error) {
	if err := authz.Authorize(actor, authz.ActionManageExpenseTypes, authz.Resource{}); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "expense type name is required")
	}

	et := &models.ExpenseType{Name: name}
	if err := s.db.WithContext(ctx).Create(et).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateExpenseType
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return et, nil
}

// ListExpenseTypes returns expense types ordered by name
func (s *expenseService) ListExpenseTypes(ctx context.Context, actor authz.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.ExpenseType], error) {
	if err := authz.Authorize(actor, authz.ActionManageExpenseTypes, authz.Resource{}); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.ExpenseType{}).Order("name ASC")
	resp, err := pagination.Find[models.ExpenseType](query, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &resp, nil
}

// UpdateExpenseType renames an expense type
func (s *expenseService) UpdateExpenseType(ctx context.Context, actor authz.Identity, id, name string) (*models.ExpenseType, error) {
	if err := authz.Authorize(actor, authz.ActionManageExpenseTypes, authz.Resource{}); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "expense type name is required")
	}

	db := s.db.WithContext(ctx)
	et, err := findExpenseType(db, id)
	if err != nil {
		return nil, err
	}

	if err := db.Model(et).Update("name", name).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateExpenseType
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	et.Name = name
	return et, nil
}

// DeleteExpenseType removes an expense type that no expense refers to.
func (s *expenseService) DeleteExpenseType(ctx context.Context, actor authz.Identity, id string) error {
	if err := authz.Authorize(actor, authz.ActionManageExpenseTypes, authz.Resource{}); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		et, err := findExpenseType(tx, id)
		if err != nil {
			return err
		}

		var used int64
		if err := tx.Model(&models.Expense{}).Where("expense_type_id = ?", id).Count(&used).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if used > 0 {
			return apperrors.ErrExpenseTypeInUse
		}

		if err := tx.Delete(et).Error; err != nil {
			if isForeignKeyViolation(err) {
				return apperrors.ErrExpenseTypeInUse
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// RecordExpense appends an expense. Expenses are never edited.
func (s *expenseService) RecordExpense(ctx context.Context, actor authz.Identity, input RecordExpenseInput) (*models.Expense, error) {
	if err := authz.Authorize(actor, authz.ActionRecordExpense, authz.Resource{}); err != nil {
		return nil, err
	}

	amount, err := money(input.Amount)
	if err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date is required")
	}

	db := s.db.WithContext(ctx)
	et, err := findExpenseType(db, input.ExpenseTypeID)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ExpenseTypeID: et.ID,
		Amount:        amount,
		Description:   strings.TrimSpace(input.Description),
		Date:          input.Date,
		RecordedByID:  actor.UserID,
	}
	if err := db.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expense.ExpenseType = et
	return expense, nil
}

// GetExpense retrieves an expense by ID
func (s *expenseService) GetExpense(ctx context.Context, actor authz.Identity, id string) (*models.Expense, error) {
	if err := authz.Authorize(actor, authz.ActionViewExpenses, authz.Resource{}); err != nil {
		return nil, err
	}

	var expense models.Expense
	if err := s.db.WithContext(ctx).Preload("ExpenseType").Where("id = ?", id).First(&expense).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrExpenseNotFound)
	}
	return &expense, nil
}

// ListExpenses returns expenses by date, newest first
func (s *expenseService) ListExpenses(ctx context.Context, actor authz.Identity, filter ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if err := authz.Authorize(actor, authz.ActionViewExpenses, authz.Resource{}); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Expense{})
	if filter.ExpenseTypeID != nil {
		query = query.Where("expense_type_id = ?", *filter.ExpenseTypeID)
	}
	if filter.FromDate != nil {
		query = query.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("date <= ?", *filter.ToDate)
	}

	resp, err := pagination.Find[models.Expense](query.Order("date DESC, id DESC"), page, "ExpenseType")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &resp, nil
}

func findExpenseType(db *gorm.DB, id string) (*models.ExpenseType, error) {
	var et models.ExpenseType
	if err := db.Where("id = ?", id).First(&et).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrExpenseTypeNotFound)
	}
	return &et, nil
}
