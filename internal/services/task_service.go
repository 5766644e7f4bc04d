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

// taskService handles the task catalogue.
type taskService struct {
	db *gorm.DB
}

// NewTaskService creates a new TaskServicer.
func NewTaskService(db *gorm.DB) TaskServicer {
	return &taskService{db: db}
}

// CreateTask adds a task
func (s *taskService) CreateTask(ctx context.Context, actor authz.Identity, name, description string) (*models.Task, error) {
	if err := authz.Authorize(actor, authz.ActionManageTasks, authz.Resource{}); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "task name is required")
	}

	task := &models.Task{Name: name, Description: strings.TrimSpace(description)}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateTask
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return task, nil
}

// GetTask retrieves a task by ID
func (s *taskService) GetTask(ctx context.Context, actor authz.Identity, id string) (*models.Task, error) {
	if err := authz.Authorize(actor, authz.ActionViewTasks, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.find(s.db.WithContext(ctx), id)
}

func (s *taskService) find(db *gorm.DB, id string) (*models.Task, error) {
	var task models.Task
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrTaskNotFound)
	}
	return &task, nil
}

// ListTasks returns tasks ordered by name
func (s *taskService) ListTasks(ctx context.Context, actor authz.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.Task], error) {
	if err := authz.Authorize(actor, authz.ActionViewTasks, authz.Resource{}); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Task{}).Order("name ASC")
	resp, err := pagination.Find[models.Task](query, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &resp, nil
}

// UpdateTask renames a task or changes its description. Empty fields are kept.
func (s *taskService) UpdateTask(ctx context.Context, actor authz.Identity, id, name, description string) (*models.Task, error) {
	if err := authz.Authorize(actor, authz.ActionManageTasks, authz.Resource{}); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	task, err := s.find(db, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		task.Name = name
	}
	if description = strings.TrimSpace(description); description != "" {
		task.Description = description
	}

	if err := db.Model(task).Select("name", "description").Updates(task).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateTask
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return task, nil
}

// DeleteTask removes a task that no receipt book or receipt refers to.
func (s *taskService) DeleteTask(ctx context.Context, actor authz.Identity, id string) error {
	if err := authz.Authorize(actor, authz.ActionManageTasks, authz.Resource{}); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.find(tx, id)
		if err != nil {
			return err
		}

		var books int64
		if err := tx.Model(&models.ReceiptBook{}).Where("task_id = ?", id).Count(&books).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if books > 0 {
			return apperrors.ErrTaskInUse
		}

		if err := tx.Delete(task).Error; err != nil {
			if isForeignKeyViolation(err) {
				return apperrors.ErrTaskInUse
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
