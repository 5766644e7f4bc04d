package services

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
)

// aggregatorService computes ledger totals. It only reads.
type aggregatorService struct {
	db *gorm.DB
}

// NewAggregatorService creates a new AggregatorServicer.
func NewAggregatorService(db *gorm.DB) AggregatorServicer {
	return &aggregatorService{db: db}
}

// ComputeTotals sums income (by receipt created_at, optionally one task)
// and expenses (by expense date). The three queries run concurrently.
// Empty ledgers produce zeros and an empty breakdown.
func (s *aggregatorService) ComputeTotals(ctx context.Context, filter TotalsFilter) (*Totals, error) {
	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)

	var t rawTotals
	g.Go(func() error { return s.sumIncome(db, filter, &t.income) })
	g.Go(func() error { return s.sumExpenses(db, filter, &t.expenses) })
	g.Go(func() error { return s.incomeByTask(db, filter, &t.breakdown) })

	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return t.totals(), nil
}

// SnapshotTotals computes unfiltered totals on tx. The queries run one after
// another on the transaction so every figure comes from the same snapshot
// when tx is REPEATABLE READ.
func (s *aggregatorService) SnapshotTotals(tx *gorm.DB) (*Totals, error) {
	var t rawTotals
	filter := TotalsFilter{}
	if err := s.sumIncome(tx, filter, &t.income); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.sumExpenses(tx, filter, &t.expenses); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.incomeByTask(tx, filter, &t.breakdown); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return t.totals(), nil
}

type rawTotals struct {
	income, expenses decimal.Decimal
	breakdown        []TaskIncome
}

func (t *rawTotals) totals() *Totals {
	breakdown := t.breakdown
	if breakdown == nil {
		breakdown = []TaskIncome{}
	}
	for i := range breakdown {
		breakdown[i].Total = breakdown[i].Total.Round(2)
	}

	income := t.income.Round(2)
	expenses := t.expenses.Round(2)
	return &Totals{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Balance:       income.Sub(expenses),
		IncomeByTask:  breakdown,
	}
}

func (s *aggregatorService) sumIncome(db *gorm.DB, filter TotalsFilter, out *decimal.Decimal) error {
	return s.receipts(db, filter).Select("COALESCE(SUM(receipts.amount), 0)").Row().Scan(out)
}

func (s *aggregatorService) sumExpenses(db *gorm.DB, filter TotalsFilter, out *decimal.Decimal) error {
	query := db.Model(&models.Expense{})
	if filter.FromDate != nil {
		query = query.Where("expenses.date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("expenses.date <= ?", *filter.ToDate)
	}
	return query.Select("COALESCE(SUM(expenses.amount), 0)").Row().Scan(out)
}

func (s *aggregatorService) incomeByTask(db *gorm.DB, filter TotalsFilter, out *[]TaskIncome) error {
	return s.receipts(db, filter).
		Select("receipts.task_id AS task_id, tasks.name AS task_name, " +
			"COALESCE(SUM(receipts.amount), 0) AS total, " +
			"COUNT(DISTINCT receipts.receipt_book_id) AS receipt_book_count").
		Joins("JOIN tasks ON tasks.id = receipts.task_id").
		Group("receipts.task_id, tasks.name").
		Order("tasks.name ASC, receipts.task_id ASC").
		Scan(out).Error
}

// receipts returns the receipt query narrowed by filter.
func (s *aggregatorService) receipts(db *gorm.DB, filter TotalsFilter) *gorm.DB {
	query := db.Model(&models.Receipt{})
	if filter.FromDate != nil {
		query = query.Where("receipts.created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("receipts.created_at <= ?", *filter.ToDate)
	}
	if filter.TaskID != nil {
		query = query.Where("receipts.task_id = ?", *filter.TaskID)
	}
	return query
}
