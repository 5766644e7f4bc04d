package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/authz"
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

type mockExpenseService struct {
	recordExpenseFn func(actor authz.Identity, input services.RecordExpenseInput) (*models.Expense, error)
	listExpensesFn  func(actor authz.Identity, filter services.ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
}

func (m *mockExpenseService) CreateExpenseType(_ context.Context, _ authz.Identity, name string) (*models.ExpenseType, error) {
	return &models.ExpenseType{Name: name}, nil
}

func (m *mockExpenseService) ListExpenseTypes(_ context.Context, _ authz.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.ExpenseType], error) {
	resp := pagination.NewPageResponse([]models.ExpenseType{}, page, 0)
	return &resp, nil
}

func (m *mockExpenseService) UpdateExpenseType(_ context.Context, _ authz.Identity, id, name string) (*models.ExpenseType, error) {
	return &models.ExpenseType{Base: models.Base{ID: id}, Name: name}, nil
}

func (m *mockExpenseService) DeleteExpenseType(_ context.Context, _ authz.Identity, _ string) error {
	return apperrors.ErrExpenseTypeInUse
}

func (m *mockExpenseService) RecordExpense(_ context.Context, actor authz.Identity, input services.RecordExpenseInput) (*models.Expense, error) {
	if m.recordExpenseFn != nil {
		return m.recordExpenseFn(actor, input)
	}
	return &models.Expense{Amount: input.Amount, Date: input.Date}, nil
}

func (m *mockExpenseService) GetExpense(_ context.Context, _ authz.Identity, id string) (*models.Expense, error) {
	return &models.Expense{Base: models.Base{ID: id}}, nil
}

func (m *mockExpenseService) ListExpenses(_ context.Context, actor authz.Identity, filter services.ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if m.listExpensesFn != nil {
		return m.listExpensesFn(actor, filter, page)
	}
	resp := pagination.NewPageResponse([]models.Expense{}, page, 0)
	return &resp, nil
}

var _ services.ExpenseServicer = (*mockExpenseService)(nil)

func setupExpenseRouter(handler *ExpenseHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectIdentity(testUserID, models.RoleManager))
	auth.POST("/expense-types", handler.CreateExpenseType)
	auth.GET("/expense-types", handler.ListExpenseTypes)
	auth.PUT("/expense-types/:id", handler.UpdateExpenseType)
	auth.DELETE("/expense-types/:id", handler.DeleteExpenseType)
	auth.POST("/expenses", handler.RecordExpense)
	auth.GET("/expenses", handler.ListExpenses)
	auth.GET("/expenses/:id", handler.GetExpense)
	return r
}

func TestExpenseHandler_RecordExpense(t *testing.T) {
	t.Run("parses date-only values", func(t *testing.T) {
		var got services.RecordExpenseInput
		svc := &mockExpenseService{
			recordExpenseFn: func(_ authz.Identity, input services.RecordExpenseInput) (*models.Expense, error) {
				got = input
				return &models.Expense{Amount: input.Amount}, nil
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/expenses",
			`{"expense_type_id":"`+testTaskID+`","amount":"400.00","description":"Electricity","date":"2024-03-15"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		if !got.Date.Equal(want) {
			t.Errorf("expected %v, got %v", want, got.Date)
		}
		if got.Amount.StringFixed(2) != "400.00" {
			t.Errorf("expected 400.00, got %s", got.Amount)
		}
	})

	t.Run("returns 400 on bad date", func(t *testing.T) {
		r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/expenses",
			`{"expense_type_id":"`+testTaskID+`","amount":"1","date":"15/03/2024"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid amount from service", func(t *testing.T) {
		svc := &mockExpenseService{
			recordExpenseFn: func(_ authz.Identity, _ services.RecordExpenseInput) (*models.Expense, error) {
				return nil, apperrors.ErrInvalidAmount
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/expenses",
			`{"expense_type_id":"`+testTaskID+`","amount":"-5","date":"2024-03-15"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_AMOUNT")
	})
}

func TestExpenseHandler_ListExpenses(t *testing.T) {
	var got services.ExpenseFilter
	svc := &mockExpenseService{
		listExpensesFn: func(_ authz.Identity, filter services.ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
			got = filter
			resp := pagination.NewPageResponse([]models.Expense{}, page, 0)
			return &resp, nil
		},
	}
	r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/expenses?expense_type_id="+testTaskID+"&from_date=2024-01-01T00:00:00Z", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.ExpenseTypeID == nil || *got.ExpenseTypeID != testTaskID {
		t.Errorf("expected type filter, got %v", got.ExpenseTypeID)
	}
	if got.FromDate == nil || got.ToDate != nil {
		t.Errorf("unexpected dates from=%v to=%v", got.FromDate, got.ToDate)
	}
}

func TestExpenseHandler_DeleteExpenseType(t *testing.T) {
	r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, &mockAuditService{}))

	rec := doRequest(r, "DELETE", "/expense-types/"+testTaskID, "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "EXPENSE_TYPE_IN_USE")
}
