package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// ExpenseHandler handles expense types and the expense log.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService}
}

// ExpenseTypeRequest represents the request payload for creating or renaming an expense type
type ExpenseTypeRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// RecordExpenseRequest represents the request payload for recording an expense
type RecordExpenseRequest struct {
	ExpenseTypeID string          `json:"expense_type_id" binding:"required,uuid"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"120.50"`
	Description   string          `json:"description" binding:"max=500"`
	Date          string          `json:"date" binding:"required"`
}

// CreateExpenseType handles creating an expense type
// @Summary     Create an expense type
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExpenseTypeRequest true "Expense type"
// @Success     201 {object} models.ExpenseType "Expense type created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /expense-types [post]
func (h *ExpenseHandler) CreateExpenseType(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	et, err := h.expenseService.CreateExpenseType(c.Request.Context(), actor, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "CREATE_EXPENSE_TYPE", "expense_type", et.ID, c.ClientIP(),
		map[string]any{"name": et.Name})

	c.JSON(http.StatusCreated, gin.H{"expense_type": et})
}

// ListExpenseTypes handles listing expense types
// @Summary     List expense types
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.ExpenseType] "Paginated expense types"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /expense-types [get]
func (h *ExpenseHandler) ListExpenseTypes(c *gin.Context) {
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

	result, err := h.expenseService.ListExpenseTypes(c.Request.Context(), actor, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateExpenseType handles renaming an expense type
// @Summary     Rename an expense type
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Expense type ID"
// @Param       request body ExpenseTypeRequest true "Expense type"
// @Success     200 {object} models.ExpenseType "Updated expense type"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Expense type not found"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /expense-types/{id} [put]
func (h *ExpenseHandler) UpdateExpenseType(c *gin.Context) {
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

	var req ExpenseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	et, err := h.expenseService.UpdateExpenseType(c.Request.Context(), actor, id, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "UPDATE_EXPENSE_TYPE", "expense_type", et.ID, c.ClientIP(),
		map[string]any{"name": et.Name})

	c.JSON(http.StatusOK, gin.H{"expense_type": et})
}

// DeleteExpenseType handles deleting an unused expense type
// @Summary     Delete an expense type
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense type ID"
// @Success     200 {object} map[string]string "Expense type deleted"
// @Failure     404 {object} ErrorResponse "Expense type not found"
// @Failure     409 {object} ErrorResponse "Expense type in use"
// @Router      /expense-types/{id} [delete]
func (h *ExpenseHandler) DeleteExpenseType(c *gin.Context) {
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

	if err := h.expenseService.DeleteExpenseType(c.Request.Context(), actor, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "DELETE_EXPENSE_TYPE", "expense_type", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Expense type deleted successfully"})
}

// RecordExpense handles recording an expense
// @Summary     Record an expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RecordExpenseRequest true "Expense details (date as RFC3339 or YYYY-MM-DD)"
// @Success     201 {object} models.Expense "Expense recorded"
// @Failure     400 {object} ErrorResponse "Invalid input or amount"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Expense type not found"
// @Router      /expenses [post]
func (h *ExpenseHandler) RecordExpense(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecordExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseFlexibleTime(req.Date, false)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date format, use RFC3339 or YYYY-MM-DD"))
		return
	}

	expense, err := h.expenseService.RecordExpense(c.Request.Context(), actor, services.RecordExpenseInput{
		ExpenseTypeID: req.ExpenseTypeID,
		Amount:        req.Amount,
		Description:   req.Description,
		Date:          date,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "RECORD_EXPENSE", "expense", expense.ID, c.ClientIP(),
		map[string]any{"expense_type_id": expense.ExpenseTypeID, "amount": expense.Amount.StringFixed(2)})

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpense handles fetching one expense
// @Summary     Get expense by ID
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} models.Expense "Expense details"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
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

	expense, err := h.expenseService.GetExpense(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// ListExpenses handles listing expenses
// @Summary     List expenses
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       expense_type_id query string false "Filter by expense type"
// @Param       from_date       query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date         query string false "Filter by end date (RFC3339 or YYYY-MM-DD, inclusive)"
// @Param       page            query int    false "Page number (default 1)"
// @Param       page_size       query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
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

	var filter services.ExpenseFilter
	if filter.ExpenseTypeID, err = optionalUUIDQuery(c, "expense_type_id"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.FromDate, filter.ToDate, err = parseDateRange(c); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.ListExpenses(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
