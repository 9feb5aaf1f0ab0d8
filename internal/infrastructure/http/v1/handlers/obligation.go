package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/domain"
	"github.com/phompasit/finance-sub002/internal/domain/obligation"
	"github.com/phompasit/finance-sub002/internal/infrastructure/http/v1/dto"
)

// ObligationHandler handles HTTP requests for the obligation ledger.
type ObligationHandler struct {
	*BaseHandler
	service *obligation.Service
}

// NewObligationHandler creates a new obligation handler.
func NewObligationHandler(base *BaseHandler, service *obligation.Service) *ObligationHandler {
	return &ObligationHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers obligation routes.
func (h *ObligationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)

	rg.POST("/:id/transactions", h.AppendTransaction)
	rg.DELETE("/:id/transactions/:txId", h.RemoveTransaction)

	rg.PUT("/:id/installments/:currency", h.SetInstallments)
	rg.POST("/:id/installments/:currency/:lineNo/pay", h.PayInstallment)

	rg.POST("/:id/activate", h.Activate)
	rg.POST("/:id/close", h.Close)
	rg.POST("/:id/reopen", h.Reopen)
	rg.POST("/:id/principal", h.IncreasePrincipal)
}

// Create handles POST /obligations.
func (h *ObligationHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateObligationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, o); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromObligation(o))
}

// Get handles GET /obligations/:id.
func (h *ObligationHandler) Get(c *gin.Context) {
	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}

	o, err := h.service.GetByID(c.Request.Context(), obligationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromObligation(o))
}

// List handles GET /obligations with filtering and pagination.
func (h *ObligationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var page dto.PaginationRequest
	if !h.BindQuery(c, &page) {
		return
	}
	page.Defaults()

	filter := obligation.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Limit = page.PageSize
	filter.Offset = page.Offset()
	filter.OrderBy = c.DefaultQuery("orderBy", "created_at DESC")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if counterpartyID := c.Query("counterpartyId"); counterpartyID != "" {
		parsed, err := id.Parse(counterpartyID)
		if err == nil {
			filter.CounterpartyID = &parsed
		}
	}

	if status := c.Query("status"); status != "" {
		val := obligation.Status(status)
		filter.Status = &val
	}

	if kind := c.Query("kind"); kind != "" {
		val := obligation.Kind(kind)
		filter.Kind = &val
	}

	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}

	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.ObligationResponse, len(result.Items))
	for i, o := range result.Items {
		items[i] = dto.FromObligation(o)
	}

	h.OK(c, dto.ObligationListResponse{
		Items:      items,
		TotalCount: int(result.TotalCount),
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Delete handles DELETE /obligations/:id (soft delete).
func (h *ObligationHandler) Delete(c *gin.Context) {
	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), obligationID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// AppendTransaction handles POST /obligations/:id/transactions.
func (h *ObligationHandler) AppendTransaction(c *gin.Context) {
	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.AppendTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	txn, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.AppendTransaction(c.Request.Context(), obligationID, txn, req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromObligation(o))
}

// RemoveTransaction handles DELETE /obligations/:id/transactions/:txId.
func (h *ObligationHandler) RemoveTransaction(c *gin.Context) {
	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}

	txID, err := id.Parse(c.Param("txId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid transaction id format"))
		return
	}

	expectedVersion := h.ParseIntQuery(c, "version", 0)

	o, err := h.service.RemoveTransaction(c.Request.Context(), obligationID, txID, expectedVersion)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromObligation(o))
}

// SetInstallments handles PUT /obligations/:id/installments/:currency.
// Accepts either explicit lines or an even-split request.
func (h *ObligationHandler) SetInstallments(c *gin.Context) {
	ctx := c.Request.Context()

	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}
	currency := obligation.Currency(c.Param("currency"))

	var req dto.SetInstallmentsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if len(req.Lines) > 0 && req.SplitCount > 0 {
		h.Error(c, apperror.NewValidation("provide either lines or splitCount, not both"))
		return
	}

	var installments []obligation.Installment
	var err error

	if req.SplitCount > 0 {
		if req.FirstDueDate == nil {
			h.Error(c, apperror.NewValidation("firstDueDate is required with splitCount").
				WithDetail("field", "firstDueDate"))
			return
		}

		// The even split needs the principal amount, so load the aggregate
		// first. The service re-checks currency containment under the lock.
		existing, err := h.service.GetByID(ctx, obligationID)
		if err != nil {
			h.Error(c, err)
			return
		}
		principal, ok := existing.Principal(currency)
		if !ok {
			h.Error(c, apperror.NewCurrencyNotInPrincipal(string(currency)))
			return
		}
		installments, err = obligation.SplitEven(principal, req.SplitCount, *req.FirstDueDate)
		if err != nil {
			h.Error(c, err)
			return
		}
	} else {
		installments, err = req.ToDomain(currency)
		if err != nil {
			h.Error(c, err)
			return
		}
	}

	o, err := h.service.SetInstallments(ctx, obligationID, currency, installments, req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromObligation(o))
}

// PayInstallment handles POST /obligations/:id/installments/:currency/:lineNo/pay.
func (h *ObligationHandler) PayInstallment(c *gin.Context) {
	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}
	currency := obligation.Currency(c.Param("currency"))

	lineNo, err := strconv.Atoi(c.Param("lineNo"))
	if err != nil || lineNo < 1 {
		h.Error(c, apperror.NewValidation("invalid line number").
			WithDetail("value", c.Param("lineNo")))
		return
	}

	var req dto.PayInstallmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	paidDate := time.Now()
	if req.PaidDate != nil {
		paidDate = *req.PaidDate
	}

	o, err := h.service.MarkInstallmentPaid(c.Request.Context(), obligationID, currency, lineNo, paidDate, req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromObligation(o))
}

// Activate handles POST /obligations/:id/activate.
func (h *ObligationHandler) Activate(c *gin.Context) {
	h.transition(c, func(obligationID id.ID, version int) (*obligation.Obligation, error) {
		return h.service.Activate(c.Request.Context(), obligationID, version)
	})
}

// Close handles POST /obligations/:id/close.
func (h *ObligationHandler) Close(c *gin.Context) {
	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.CloseObligationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.Close(c.Request.Context(), obligationID, req.Remarks, req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromObligation(o))
}

// Reopen handles POST /obligations/:id/reopen.
func (h *ObligationHandler) Reopen(c *gin.Context) {
	h.transition(c, func(obligationID id.ID, version int) (*obligation.Obligation, error) {
		return h.service.Reopen(c.Request.Context(), obligationID, version)
	})
}

// IncreasePrincipal handles POST /obligations/:id/principal.
func (h *ObligationHandler) IncreasePrincipal(c *gin.Context) {
	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.IncreasePrincipalRequest
	if !h.BindJSON(c, &req) {
		return
	}

	delta, err := dto.CurrencyAmountRequest{Currency: req.Currency, Amount: req.Amount}.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.IncreasePrincipal(c.Request.Context(), obligationID, delta, req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromObligation(o))
}

// transition runs a body-optional lifecycle command taking only a version.
func (h *ObligationHandler) transition(c *gin.Context, run func(obligationID id.ID, version int) (*obligation.Obligation, error)) {
	obligationID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.VersionRequest
	if c.Request.ContentLength > 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}

	o, err := run(obligationID, req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromObligation(o))
}

func (h *ObligationHandler) parseID(c *gin.Context) (id.ID, bool) {
	obligationID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return id.Nil(), false
	}
	return obligationID, true
}
