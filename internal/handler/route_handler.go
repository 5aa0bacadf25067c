package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/response"
)

type routeService interface {
	List(ctx context.Context) ([]models.RouteDetail, error)
	Get(ctx context.Context, id int64) (*models.RouteDetail, error)
}

// RouteHandler serves bus routes.
type RouteHandler struct {
	service routeService
}

// NewRouteHandler constructs a RouteHandler.
func NewRouteHandler(service routeService) *RouteHandler {
	return &RouteHandler{service: service}
}

// List godoc
// @Summary List routes
// @Tags Routes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /routes [get]
func (h *RouteHandler) List(c *gin.Context) {
	routes, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routes, nil, map[string]interface{}{"total": len(routes)})
}

// Get godoc
// @Summary Route detail with ordered stops and encoded polyline
// @Tags Routes
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /routes/{id} [get]
func (h *RouteHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	route, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, route, nil)
}
