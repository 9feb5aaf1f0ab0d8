package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/domain"
	"github.com/phompasit/finance-sub002/internal/domain/counterparty"
	"github.com/phompasit/finance-sub002/internal/infrastructure/http/v1/dto"
)

// CounterpartyHandler handles HTTP requests for the counterparty catalog.
type CounterpartyHandler struct {
	*BaseHandler
	service *counterparty.Service
}

// NewCounterpartyHandler creates a new counterparty handler.
func NewCounterpartyHandler(base *BaseHandler, service *counterparty.Service) *CounterpartyHandler {
	return &CounterpartyHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers counterparty routes.
func (h *CounterpartyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// Create handles POST /counterparties.
func (h *CounterpartyHandler) Create(c *gin.Context) {
	var req dto.CreateCounterpartyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cp := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), cp); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromCounterparty(cp))
}

// Get handles GET /counterparties/:id.
func (h *CounterpartyHandler) Get(c *gin.Context) {
	cpID, ok := h.parseID(c)
	if !ok {
		return
	}

	cp, err := h.service.GetByID(c.Request.Context(), cpID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCounterparty(cp))
}

// Update handles PUT /counterparties/:id.
func (h *CounterpartyHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	cpID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateCounterpartyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cp, err := h.service.GetByID(ctx, cpID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Version != cp.Version {
		h.Error(c, apperror.NewConcurrentModification("counterparty", cpID.String()).
			WithDetail("expected", req.Version).
			WithDetail("actual", cp.Version))
		return
	}

	req.ApplyTo(cp)

	if err := h.service.Update(ctx, cp); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCounterparty(cp))
}

// Delete handles DELETE /counterparties/:id (soft delete).
func (h *CounterpartyHandler) Delete(c *gin.Context) {
	cpID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), cpID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /counterparties.
func (h *CounterpartyHandler) List(c *gin.Context) {
	var page dto.PaginationRequest
	if !h.BindQuery(c, &page) {
		return
	}
	page.Defaults()

	filter := counterparty.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = page.PageSize
	filter.Offset = page.Offset()
	filter.OrderBy = c.DefaultQuery("orderBy", "name ASC")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if cpType := c.Query("type"); cpType != "" {
		val := counterparty.CounterpartyType(cpType)
		filter.Type = &val
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.CounterpartyResponse, len(result.Items))
	for i, cp := range result.Items {
		items[i] = dto.FromCounterparty(cp)
	}

	h.OK(c, dto.CounterpartyListResponse{
		Items:      items,
		TotalCount: int(result.TotalCount),
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

func (h *CounterpartyHandler) parseID(c *gin.Context) (id.ID, bool) {
	cpID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return id.Nil(), false
	}
	return cpID, true
}
