package services

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"ledgerbook/internal/authz"
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/logger"
	"ledgerbook/internal/models"
	"ledgerbook/internal/notify"
	"ledgerbook/internal/pagination"
)

// reportService serves live financials and publishes immutable snapshots.
type reportService struct {
	db         *gorm.DB
	aggregator AggregatorServicer
	notifier   notify.ReportNotifier
}

// NewReportService creates a new ReportServicer. A nil notifier disables
// report.published events.
func NewReportService(db *gorm.DB, aggregator AggregatorServicer, notifier notify.ReportNotifier) ReportServicer {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &reportService{db: db, aggregator: aggregator, notifier: notifier}
}

// Financials returns live totals for managers and admins.
func (s *reportService) Financials(ctx context.Context, actor authz.Identity, filter TotalsFilter) (*Totals, error) {
	if err := authz.Authorize(actor, authz.ActionViewFinancials, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.aggregator.ComputeTotals(ctx, filter)
}

// Publish snapshots the unfiltered totals. The totals are read and the
// report and its lines written in one REPEATABLE READ transaction, so the
// per-task lines always add up to the income total. The broker is told
// only after commit and a failed notification does not undo the publish.
func (s *reportService) Publish(ctx context.Context, actor authz.Identity) (*models.PublishedReport, error) {
	if err := authz.Authorize(actor, authz.ActionPublishReport, authz.Resource{}); err != nil {
		return nil, err
	}

	var report *models.PublishedReport
	var lines []models.PublishedReportLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		totals, err := s.aggregator.SnapshotTotals(tx)
		if err != nil {
			return err
		}

		report = &models.PublishedReport{
			TotalIncome:   totals.TotalIncome,
			TotalExpenses: totals.TotalExpenses,
			Balance:       totals.Balance,
			PublishedAt:   time.Now(),
			PublishedByID: actor.ActorID(),
		}
		if err := tx.Omit("Lines").Create(report).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		lines = make([]models.PublishedReportLine, len(totals.IncomeByTask))
		if len(lines) == 0 {
			return nil
		}
		for i, ti := range totals.IncomeByTask {
			lines[i] = models.PublishedReportLine{
				ReportID:         report.ID,
				Position:         i,
				TaskID:           ti.TaskID,
				TaskName:         ti.TaskName,
				Total:            ti.Total,
				ReceiptBookCount: ti.ReceiptBookCount,
			}
		}
		if err := tx.Create(&lines).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, asAppError(err)
	}
	report.Lines = lines

	if err := s.notifier.ReportPublished(context.WithoutCancel(ctx), report); err != nil {
		logger.Named("reports").Warnw("failed to announce published report",
			"error", err,
			"report_id", report.ID,
		)
	}
	return report, nil
}

// GetLatestPublished returns the newest report. It is public.
func (s *reportService) GetLatestPublished(ctx context.Context) (*models.PublishedReport, error) {
	var report models.PublishedReport
	err := s.db.WithContext(ctx).
		Preload("Lines", orderLines).
		Order("published_at DESC, id DESC").
		First(&report).Error
	if err != nil {
		return nil, notFoundOr(err, apperrors.ErrReportNotFound)
	}
	if report.Lines == nil {
		report.Lines = []models.PublishedReportLine{}
	}
	return &report, nil
}

// ListPublished returns the report history, newest first.
func (s *reportService) ListPublished(ctx context.Context, actor authz.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.PublishedReport], error) {
	if err := authz.Authorize(actor, authz.ActionPublishReport, authz.Resource{}); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.PublishedReport{}).Order("published_at DESC, id DESC")
	resp, err := pagination.Find[models.PublishedReport](query, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if len(resp.Data) > 0 {
		ids := make([]string, len(resp.Data))
		for i := range resp.Data {
			ids[i] = resp.Data[i].ID
		}
		var lines []models.PublishedReportLine
		if err := orderLines(s.db.WithContext(ctx).Where("report_id IN ?", ids)).Find(&lines).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		byReport := make(map[string][]models.PublishedReportLine, len(resp.Data))
		for _, l := range lines {
			byReport[l.ReportID] = append(byReport[l.ReportID], l)
		}
		for i := range resp.Data {
			resp.Data[i].Lines = byReport[resp.Data[i].ID]
			if resp.Data[i].Lines == nil {
				resp.Data[i].Lines = []models.PublishedReportLine{}
			}
		}
	}
	return &resp, nil
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
