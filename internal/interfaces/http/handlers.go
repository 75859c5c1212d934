package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/domain/access"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/notification"
)

// ToastSource hands out the pending toasts of a user
type ToastSource interface {
	Drain(userID int64) []notification.Toast
}

// HealthChecker reports whether storage is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenses service.ExpenseService
	toasts   ToastSource
	health   HealthChecker
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(expenses service.ExpenseService, toasts ToastSource, health HealthChecker, logger Logger) *Handlers {
	return &Handlers{
		expenses: expenses,
		toasts:   toasts,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Fields  interface{} `json:"fields,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	Date        string          `json:"date"`
	Category    entity.Category `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      entity.Status   `json:"status"`
	Comments    string          `json:"comments,omitempty"`
	Scope       access.Scope    `json:"scope,omitempty"`
	Actions     []access.Action `json:"actions"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /api/register
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ExpenseRequest is the body of POST and PUT /api/expenses
type ExpenseRequest struct {
	Date        string           `json:"date"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
}

// StatusRequest is the body of PATCH /api/expenses/:id/status
type StatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Comments string `json:"comments"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	if err := h.health.Ping(c.Request.Context()); err != nil {
		h.logger.Error("Health check failed", "error", err)
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Data:    response,
			Error:   "storage unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// Login handles POST /api/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, entity.ErrAuth)
		return
	}

	user, err := h.expenses.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// Register handles POST /api/register
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.expenses.Register(c.Request.Context(), entity.Registration{
		Name:       req.Name,
		Email:      req.Email,
		Credential: req.Password,
		Role:       entity.Role(req.Role),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// Me handles GET /api/me
func (h *Handlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: currentUser(c)})
}

// ListExpenses handles GET /api/expenses?status=
func (h *Handlers) ListExpenses(c *gin.Context) {
	user := currentUser(c)

	filter, err := access.ParseStatusFilter(c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	view, err := h.expenses.ListVisibleExpenses(c.Request.Context(), user, filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	actions, err := h.expenses.PermittedActions(c.Request.Context(), user, view.Expenses())
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]ExpenseResponse, 0, len(view))
	for _, entry := range view {
		resp := toExpenseResponse(entry.Expense, actions[entry.Expense.ID])
		resp.Scope = entry.Scope
		out = append(out, resp)
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := h.expenseID(c)
	if !ok {
		return
	}

	expense, err := h.expenses.GetExpense(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.respondExpense(c, http.StatusOK, expense)
}

// ExpenseHistory handles GET /api/expenses/:id/history
func (h *Handlers) ExpenseHistory(c *gin.Context) {
	id, ok := h.expenseID(c)
	if !ok {
		return
	}

	history, err := h.expenses.ExpenseHistory(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// SubmitExpense handles POST /api/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	draft, ok := h.bindDraft(c)
	if !ok {
		return
	}

	expense, err := h.expenses.SubmitExpense(c.Request.Context(), currentUser(c), draft)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.respondExpense(c, http.StatusCreated, expense)
}

// EditExpense handles PUT /api/expenses/:id
func (h *Handlers) EditExpense(c *gin.Context) {
	id, ok := h.expenseID(c)
	if !ok {
		return
	}
	draft, ok := h.bindDraft(c)
	if !ok {
		return
	}

	expense, err := h.expenses.EditExpense(c.Request.Context(), currentUser(c), id, draft)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.respondExpense(c, http.StatusOK, expense)
}

// DecideExpense handles PATCH /api/expenses/:id/status
func (h *Handlers) DecideExpense(c *gin.Context) {
	id, ok := h.expenseID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	decision, err := workflow.ParseDecision(req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	expense, err := h.expenses.DecideExpense(c.Request.Context(), currentUser(c), id, decision, req.Comments)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.respondExpense(c, http.StatusOK, expense)
}

// Summary handles GET /api/summary?status=
func (h *Handlers) Summary(c *gin.Context) {
	filter, err := access.ParseStatusFilter(c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	summary, err := h.expenses.Summarize(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// Notifications handles GET /api/notifications. Returned toasts are removed from the queue.
func (h *Handlers) Notifications(c *gin.Context) {
	toasts := h.toasts.Drain(currentUser(c).ID)
	if toasts == nil {
		toasts = []notification.Toast{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toasts})
}

func (h *Handlers) respondExpense(c *gin.Context, status int, expense *entity.Expense) {
	user := currentUser(c)
	actions, err := h.expenses.PermittedActions(c.Request.Context(), user, []*entity.Expense{expense})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, Response{Success: true, Data: toExpenseResponse(expense, actions[expense.ID])})
}

func (h *Handlers) expenseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid expense ID",
		})
		return 0, false
	}
	return id, true
}

func (h *Handlers) bindDraft(c *gin.Context) (entity.Draft, bool) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return entity.Draft{}, false
	}
	if req.Amount == nil {
		h.writeError(c, entity.NewValidationError("amount", "is required"))
		return entity.Draft{}, false
	}

	date, err := entity.ParseDate(req.Date)
	if err != nil {
		h.writeError(c, err)
		return entity.Draft{}, false
	}

	return entity.Draft{
		Date:        date,
		Category:    entity.Category(req.Category),
		Description: req.Description,
		Amount:      *req.Amount,
		Currency:    req.Currency,
	}, true
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   "malformed request body: " + err.Error(),
	})
}

// writeError maps domain errors onto HTTP statuses
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Error: err.Error()}

	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		resp.Error = entity.ErrValidation.Error()
		resp.Fields = verr.Fields
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
			"error", err)
		resp.Error = "internal server error"
	}

	c.JSON(status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrDuplicateEmail), errors.Is(err, entity.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, entity.ErrMissingReason):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func toExpenseResponse(e *entity.Expense, actions []access.Action) ExpenseResponse {
	if actions == nil {
		actions = []access.Action{}
	}
	return ExpenseResponse{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Date:        e.Date.Format(entity.DateLayout),
		Category:    e.Category,
		Description: e.Description,
		Amount:      e.Amount,
		Currency:    e.Currency,
		Status:      e.Status,
		Comments:    e.Comments,
		Actions:     actions,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}
