package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// ReceiptHandler handles the receipt ledger.
type ReceiptHandler struct {
	receiptService services.ReceiptServicer
	auditService   services.AuditServicer
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(receiptService services.ReceiptServicer, auditService services.AuditServicer) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService, auditService: auditService}
}

// IssueReceiptRequest represents the request payload for issuing a receipt.
// Amount accepts a JSON number or a decimal string such as "250.00".
type IssueReceiptRequest struct {
	BookID    string          `json:"book_id" binding:"required,uuid"`
	Number    *int64          `json:"number" binding:"required"`
	TaskID    string          `json:"task_id" binding:"omitempty,uuid"`
	GiverName string          `json:"giver_name" binding:"max=200"`
	Address   string          `json:"address" binding:"max=500"`
	Phone     string          `json:"phone" binding:"max=30"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
}

// UpdateReceiptRequest represents the request payload for correcting a receipt.
// Omitted fields keep their current value.
type UpdateReceiptRequest struct {
	BookID    *string          `json:"book_id" binding:"omitempty,uuid"`
	Number    *int64           `json:"number"`
	TaskID    *string          `json:"task_id" binding:"omitempty,uuid"`
	GiverName *string          `json:"giver_name" binding:"omitempty,max=200"`
	Address   *string          `json:"address" binding:"omitempty,max=500"`
	Phone     *string          `json:"phone" binding:"omitempty,max=30"`
	Amount    *decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
}

// IssueReceipt handles issuing a receipt
// @Summary     Issue a receipt
// @Description Record a donation against a number in a receipt book. Cash collectors may only use books assigned to them. A number already taken returns 409 with kind "duplicate".
// @Tags        receipts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body IssueReceiptRequest true "Receipt details"
// @Success     201 {object} models.Receipt "Receipt issued"
// @Failure     400 {object} ErrorResponse "Invalid input, out of range, task mismatch or invalid amount"
// @Failure     403 {object} ErrorResponse "Book not assigned to caller"
// @Failure     404 {object} ErrorResponse "Book not found"
// @Failure     409 {object} ErrorResponse "Duplicate number or book closed"
// @Router      /receipts [post]
func (h *ReceiptHandler) IssueReceipt(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req IssueReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	receipt, err := h.receiptService.IssueReceipt(c.Request.Context(), actor, services.IssueReceiptInput{
		BookID:    req.BookID,
		Number:    *req.Number,
		TaskID:    req.TaskID,
		GiverName: req.GiverName,
		Address:   req.Address,
		Phone:     req.Phone,
		Amount:    req.Amount,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "ISSUE_RECEIPT", "receipt", receipt.ID, c.ClientIP(),
		map[string]any{"book_id": receipt.ReceiptBookID, "number": receipt.Number, "amount": receipt.Amount.StringFixed(2)})

	c.JSON(http.StatusCreated, gin.H{"receipt": receipt})
}

// UpdateReceipt handles correcting a receipt
// @Summary     Update a receipt
// @Description Every rule that applies when issuing is checked again against the resulting receipt
// @Tags        receipts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Receipt ID"
// @Param       request body UpdateReceiptRequest true "Fields to change"
// @Success     200 {object} models.Receipt "Updated receipt"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Receipt or book not found"
// @Failure     409 {object} ErrorResponse "Duplicate number or book closed"
// @Router      /receipts/{id} [put]
func (h *ReceiptHandler) UpdateReceipt(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	receipt, err := h.receiptService.UpdateReceipt(c.Request.Context(), actor, id, services.UpdateReceiptInput{
		BookID:    req.BookID,
		Number:    req.Number,
		TaskID:    req.TaskID,
		GiverName: req.GiverName,
		Address:   req.Address,
		Phone:     req.Phone,
		Amount:    req.Amount,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "UPDATE_RECEIPT", "receipt", receipt.ID, c.ClientIP(),
		map[string]any{"book_id": receipt.ReceiptBookID, "number": receipt.Number, "amount": receipt.Amount.StringFixed(2)})

	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}

// GetReceipt handles fetching one receipt
// @Summary     Get receipt by ID
// @Tags        receipts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Receipt ID"
// @Success     200 {object} models.Receipt "Receipt details"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Receipt not found"
// @Router      /receipts/{id} [get]
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}

// ListReceipts handles listing receipts
// @Summary     List receipts
// @Description Cash collectors only see receipts from books assigned to them
// @Tags        receipts
// @Produce     json
// @Security    BearerAuth
// @Param       book_id   query string false "Filter by receipt book"
// @Param       task_id   query string false "Filter by task"
// @Param       issued_by query string false "Filter by issuing user"
// @Param       from_date query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "Filter by end date (RFC3339 or YYYY-MM-DD, inclusive)"
// @Param       sort      query string false "created_at (default, newest first) or number"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Receipt] "Paginated receipts"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /receipts [get]
func (h *ReceiptHandler) ListReceipts(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseReceiptFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.receiptService.ListReceipts(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseReceiptFilter(c *gin.Context) (services.ReceiptFilter, error) {
	filter := services.ReceiptFilter{Sort: c.Query("sort")}
	var err error

	if filter.BookID, err = optionalUUIDQuery(c, "book_id"); err != nil {
		return filter, err
	}
	if filter.TaskID, err = optionalUUIDQuery(c, "task_id"); err != nil {
		return filter, err
	}
	if filter.IssuedBy, err = optionalUUIDQuery(c, "issued_by"); err != nil {
		return filter, err
	}
	if filter.FromDate, filter.ToDate, err = parseDateRange(c); err != nil {
		return filter, err
	}
	return filter, nil
}
