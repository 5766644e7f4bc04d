package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ledgerbook/internal/authz"
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// --- mock receipt service ---

type mockReceiptService struct {
	issueReceiptFn  func(actor authz.Identity, input services.IssueReceiptInput) (*models.Receipt, error)
	updateReceiptFn func(actor authz.Identity, id string, input services.UpdateReceiptInput) (*models.Receipt, error)
	getReceiptFn    func(actor authz.Identity, id string) (*models.Receipt, error)
	listReceiptsFn  func(actor authz.Identity, filter services.ReceiptFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Receipt], error)
}

func (m *mockReceiptService) IssueReceipt(_ context.Context, actor authz.Identity, input services.IssueReceiptInput) (*models.Receipt, error) {
	if m.issueReceiptFn != nil {
		return m.issueReceiptFn(actor, input)
	}
	return &models.Receipt{}, nil
}

func (m *mockReceiptService) UpdateReceipt(_ context.Context, actor authz.Identity, id string, input services.UpdateReceiptInput) (*models.Receipt, error) {
	if m.updateReceiptFn != nil {
		return m.updateReceiptFn(actor, id, input)
	}
	return &models.Receipt{Base: models.Base{ID: id}}, nil
}

func (m *mockReceiptService) GetReceipt(_ context.Context, actor authz.Identity, id string) (*models.Receipt, error) {
	if m.getReceiptFn != nil {
		return m.getReceiptFn(actor, id)
	}
	return &models.Receipt{Base: models.Base{ID: id}}, nil
}

func (m *mockReceiptService) ListReceipts(_ context.Context, actor authz.Identity, filter services.ReceiptFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Receipt], error) {
	if m.listReceiptsFn != nil {
		return m.listReceiptsFn(actor, filter, page)
	}
	resp := pagination.NewPageResponse([]models.Receipt{}, page, 0)
	return &resp, nil
}

var _ services.ReceiptServicer = (*mockReceiptService)(nil)

func setupReceiptRouter(handler *ReceiptHandler, role models.Role) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectIdentity(testUserID, role))
	auth.POST("/receipts", handler.IssueReceipt)
	auth.GET("/receipts", handler.ListReceipts)
	auth.GET("/receipts/:id", handler.GetReceipt)
	auth.PUT("/receipts/:id", handler.UpdateReceipt)
	return r
}

func TestReceiptHandler_IssueReceipt(t *testing.T) {
	t.Run("returns 201 and passes the caller", func(t *testing.T) {
		var gotActor authz.Identity
		var gotInput services.IssueReceiptInput
		audit := &mockAuditService{}
		svc := &mockReceiptService{
			issueReceiptFn: func(actor authz.Identity, input services.IssueReceiptInput) (*models.Receipt, error) {
				gotActor, gotInput = actor, input
				return &models.Receipt{
					Base:          models.Base{ID: testOtherID},
					ReceiptBookID: input.BookID,
					Number:        input.Number,
					Amount:        input.Amount,
					GiverName:     input.GiverName,
				}, nil
			},
		}
		r := setupReceiptRouter(NewReceiptHandler(svc, audit), models.RoleCashCollector)

		rec := doRequest(r, "POST", "/receipts",
			`{"book_id":"`+testBookID+`","number":3,"giver_name":"Asha","amount":"250.50"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotActor.UserID != testUserID || gotActor.Role != models.RoleCashCollector {
			t.Errorf("unexpected actor %+v", gotActor)
		}
		if gotInput.Number != 3 || !gotInput.Amount.Equal(decimal.RequireFromString("250.50")) {
			t.Errorf("unexpected input %+v", gotInput)
		}
		if gotInput.TaskID != "" {
			t.Errorf("expected empty task id to reach the service, got %q", gotInput.TaskID)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "ISSUE_RECEIPT" {
			t.Errorf("expected ISSUE_RECEIPT audit entry, got %+v", audit.entries)
		}
	})

	t.Run("accepts numeric amount", func(t *testing.T) {
		var gotAmount decimal.Decimal
		svc := &mockReceiptService{
			issueReceiptFn: func(_ authz.Identity, input services.IssueReceiptInput) (*models.Receipt, error) {
				gotAmount = input.Amount
				return &models.Receipt{Amount: input.Amount}, nil
			},
		}
		r := setupReceiptRouter(NewReceiptHandler(svc, &mockAuditService{}), models.RoleManager)

		rec := doRequest(r, "POST", "/receipts",
			`{"book_id":"`+testBookID+`","number":1,"giver_name":"Asha","amount":100}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !gotAmount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected 100, got %s", gotAmount)
		}
	})

	t.Run("returns 409 duplicate kind on taken number", func(t *testing.T) {
		svc := &mockReceiptService{
			issueReceiptFn: func(_ authz.Identity, _ services.IssueReceiptInput) (*models.Receipt, error) {
				return nil, apperrors.ErrDuplicateReceiptNumber
			},
		}
		r := setupReceiptRouter(NewReceiptHandler(svc, &mockAuditService{}), models.RoleCashCollector)

		rec := doRequest(r, "POST", "/receipts",
			`{"book_id":"`+testBookID+`","number":3,"giver_name":"Asha","amount":"10"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "DUPLICATE_RECEIPT_NUMBER")
		assertErrorKind(t, result, apperrors.KindDuplicate)
	})

	t.Run("returns 403 for an unassigned book", func(t *testing.T) {
		svc := &mockReceiptService{
			issueReceiptFn: func(_ authz.Identity, _ services.IssueReceiptInput) (*models.Receipt, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		r := setupReceiptRouter(NewReceiptHandler(svc, &mockAuditService{}), models.RoleCashCollector)

		rec := doRequest(r, "POST", "/receipts",
			`{"book_id":"`+testBookID+`","number":3,"giver_name":"Asha","amount":"10"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing number", func(t *testing.T) {
		r := setupReceiptRouter(NewReceiptHandler(&mockReceiptService{}, &mockAuditService{}), models.RoleManager)

		rec := doRequest(r, "POST", "/receipts", `{"book_id":"`+testBookID+`","giver_name":"Asha","amount":"10"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on malformed amount", func(t *testing.T) {
		r := setupReceiptRouter(NewReceiptHandler(&mockReceiptService{}, &mockAuditService{}), models.RoleManager)

		rec := doRequest(r, "POST", "/receipts",
			`{"book_id":"`+testBookID+`","number":1,"giver_name":"Asha","amount":"ten"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 401 without identity", func(t *testing.T) {
		handler := NewReceiptHandler(&mockReceiptService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/receipts", handler.IssueReceipt)

		rec := doRequest(r, "POST", "/receipts", `{}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestReceiptHandler_UpdateReceipt(t *testing.T) {
	var got services.UpdateReceiptInput
	svc := &mockReceiptService{
		updateReceiptFn: func(_ authz.Identity, id string, input services.UpdateReceiptInput) (*models.Receipt, error) {
			got = input
			return &models.Receipt{Base: models.Base{ID: id}, Number: *input.Number}, nil
		},
	}
	r := setupReceiptRouter(NewReceiptHandler(svc, &mockAuditService{}), models.RoleManager)

	rec := doRequest(r, "PUT", "/receipts/"+testOtherID, `{"number":4}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Number == nil || *got.Number != 4 {
		t.Errorf("expected number 4, got %v", got.Number)
	}
	if got.BookID != nil || got.Amount != nil || got.GiverName != nil {
		t.Errorf("omitted fields should stay nil: %+v", got)
	}
}

func TestReceiptHandler_ListReceipts(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		var got services.ReceiptFilter
		svc := &mockReceiptService{
			listReceiptsFn: func(_ authz.Identity, filter services.ReceiptFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Receipt], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Receipt{}, page, 0)
				return &resp, nil
			},
		}
		r := setupReceiptRouter(NewReceiptHandler(svc, &mockAuditService{}), models.RoleManager)

		rec := doRequest(r, "GET", "/receipts?book_id="+testBookID+"&sort=number&from_date=2024-01-01&to_date=2024-01-31", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.BookID == nil || *got.BookID != testBookID {
			t.Errorf("expected book filter, got %v", got.BookID)
		}
		if got.Sort != services.ReceiptSortNumber {
			t.Errorf("expected number sort, got %q", got.Sort)
		}
		if got.ToDate == nil || got.ToDate.Hour() != 23 {
			t.Errorf("expected inclusive end of day, got %v", got.ToDate)
		}
	})

	t.Run("returns 400 on bad date", func(t *testing.T) {
		r := setupReceiptRouter(NewReceiptHandler(&mockReceiptService{}, &mockAuditService{}), models.RoleManager)

		rec := doRequest(r, "GET", "/receipts?from_date=yesterday", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on inverted range", func(t *testing.T) {
		r := setupReceiptRouter(NewReceiptHandler(&mockReceiptService{}, &mockAuditService{}), models.RoleManager)

		rec := doRequest(r, "GET", "/receipts?from_date=2024-02-01&to_date=2024-01-01", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
