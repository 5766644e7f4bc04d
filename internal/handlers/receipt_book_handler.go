package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// ReceiptBookHandler handles receipt book allocation.
type ReceiptBookHandler struct {
	bookService  services.ReceiptBookServicer
	auditService services.AuditServicer
}

// NewReceiptBookHandler creates a new ReceiptBookHandler.
func NewReceiptBookHandler(bookService services.ReceiptBookServicer, auditService services.AuditServicer) *ReceiptBookHandler {
	return &ReceiptBookHandler{bookService: bookService, auditService: auditService}
}

// CreateBookRequest represents the request payload for creating a receipt book
type CreateBookRequest struct {
	BookNumber  string `json:"book_number" binding:"required,min=1,max=50"`
	TaskID      string `json:"task_id" binding:"required,uuid"`
	StartNumber *int64 `json:"start_number" binding:"required"`
	EndNumber   *int64 `json:"end_number" binding:"required"`
}

// AssignBookRequest represents the request payload for assigning a book
type AssignBookRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// UpdateBookRangeRequest represents the request payload for changing an unused book's range
type UpdateBookRangeRequest struct {
	StartNumber *int64 `json:"start_number" binding:"required"`
	EndNumber   *int64 `json:"end_number" binding:"required"`
}

// NextNumberResponse is the advisory next receipt number of a book.
type NextNumberResponse struct {
	BookID     string `json:"book_id"`
	NextNumber int64  `json:"next_number" example:"42"` // one past the highest issued number
}

// CreateBook handles receipt book creation
// @Summary     Create a receipt book
// @Description Reserve the range [start_number, end_number] for one task
// @Tags        receipt-books
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBookRequest true "Book details"
// @Success     201 {object} models.ReceiptBook "Book created"
// @Failure     400 {object} ErrorResponse "Invalid input or range"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Task not found"
// @Failure     409 {object} ErrorResponse "Duplicate book number"
// @Router      /receipt-books [post]
func (h *ReceiptBookHandler) CreateBook(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	book, err := h.bookService.CreateBook(c.Request.Context(), actor, services.CreateBookInput{
		BookNumber: req.BookNumber,
		TaskID:     req.TaskID,
		Start:      *req.StartNumber,
		End:        *req.EndNumber,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "CREATE_RECEIPT_BOOK", "receipt_book", book.ID, c.ClientIP(),
		map[string]any{"book_number": book.BookNumber, "start": book.StartNumber, "end": book.EndNumber})

	c.JSON(http.StatusCreated, gin.H{"receipt_book": book})
}

// ListBooks handles listing receipt books
// @Summary     List receipt books
// @Description Cash collectors only see books assigned to them
// @Tags        receipt-books
// @Produce     json
// @Security    BearerAuth
// @Param       task_id     query string false "Filter by task"
// @Param       assigned_to query string false "Filter by assignee"
// @Param       status      query string false "Filter by status (active, closed, exhausted)"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.ReceiptBook] "Paginated books"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /receipt-books [get]
func (h *ReceiptBookHandler) ListBooks(c *gin.Context) {
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

	var filter services.BookFilter
	if filter.TaskID, err = optionalUUIDQuery(c, "task_id"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.AssignedTo, err = optionalUUIDQuery(c, "assigned_to"); err != nil {
		respondWithError(c, err)
		return
	}
	if v := c.Query("status"); v != "" {
		status := models.BookStatus(v)
		filter.Status = &status
	}

	result, err := h.bookService.ListBooks(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBook handles fetching one receipt book
// @Summary     Get receipt book by ID
// @Tags        receipt-books
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Book ID"
// @Success     200 {object} models.ReceiptBook "Book details"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Book not found"
// @Router      /receipt-books/{id} [get]
func (h *ReceiptBookHandler) GetBook(c *gin.Context) {
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

	book, err := h.bookService.GetBook(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipt_book": book})
}

// AssignBook handles handing a book to a cash collector
// @Summary     Assign a receipt book
// @Description Assign or reassign a book to an active cash collector
// @Tags        receipt-books
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Book ID"
// @Param       request body AssignBookRequest true "Assignee"
// @Success     200 {object} models.ReceiptBook "Assigned book"
// @Failure     400 {object} ErrorResponse "Invalid assignee"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Book or user not found"
// @Failure     409 {object} ErrorResponse "Book closed"
// @Router      /receipt-books/{id}/assign [post]
func (h *ReceiptBookHandler) AssignBook(c *gin.Context) {
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

	var req AssignBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	book, err := h.bookService.AssignBook(c.Request.Context(), actor, id, req.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "ASSIGN_RECEIPT_BOOK", "receipt_book", book.ID, c.ClientIP(),
		map[string]any{"assigned_to_id": req.UserID})

	c.JSON(http.StatusOK, gin.H{"receipt_book": book})
}

// CloseBook handles closing a book
// @Summary     Close a receipt book
// @Description Closed books accept no further receipts
// @Tags        receipt-books
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Book ID"
// @Success     200 {object} models.ReceiptBook "Closed book"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Book not found"
// @Router      /receipt-books/{id}/close [post]
func (h *ReceiptBookHandler) CloseBook(c *gin.Context) {
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

	book, err := h.bookService.CloseBook(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "CLOSE_RECEIPT_BOOK", "receipt_book", book.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"receipt_book": book})
}

// UpdateBookRange handles changing the range of an unused book
// @Summary     Change a receipt book's range
// @Description Allowed only while no receipt has been issued from the book
// @Tags        receipt-books
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Book ID"
// @Param       request body UpdateBookRangeRequest true "New range"
// @Success     200 {object} models.ReceiptBook "Updated book"
// @Failure     400 {object} ErrorResponse "Invalid range"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Book not found"
// @Failure     409 {object} ErrorResponse "Range locked"
// @Router      /receipt-books/{id}/range [put]
func (h *ReceiptBookHandler) UpdateBookRange(c *gin.Context) {
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

	var req UpdateBookRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	book, err := h.bookService.UpdateBookRange(c.Request.Context(), actor, id, *req.StartNumber, *req.EndNumber)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "UPDATE_RECEIPT_BOOK_RANGE", "receipt_book", book.ID, c.ClientIP(),
		map[string]any{"start": book.StartNumber, "end": book.EndNumber})

	c.JSON(http.StatusOK, gin.H{"receipt_book": book})
}

// NextNumber handles the advisory next-number lookup
// @Summary     Next available receipt number
// @Description Advisory only: issuing may still fail with a duplicate if another collector is faster.
// @Description The suggestion is one past the highest issued number, so lower gaps are never suggested;
// @Description once the end number is used this returns RANGE_EXHAUSTED even if gaps remain issuable.
// @Tags        receipts
// @Produce     json
// @Security    BearerAuth
// @Param       book_id query string true "Book ID"
// @Success     200 {object} NextNumberResponse "Next number"
// @Failure     400 {object} ErrorResponse "Invalid book ID"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Book not found"
// @Failure     409 {object} ErrorResponse "Range exhausted or book closed"
// @Router      /receipts/next-number [get]
func (h *ReceiptBookHandler) NextNumber(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	bookID, err := parseUUID(c.Query("book_id"), "book_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	next, err := h.bookService.NextAvailableNumber(c.Request.Context(), actor, bookID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, NextNumberResponse{BookID: bookID, NextNumber: next})
}
