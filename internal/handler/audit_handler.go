package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/busbuddy-api/internal/dto"
	"github.com/noah-isme/busbuddy-api/internal/service"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/response"
)

type auditService interface {
	CreateRun(ctx context.Context, req dto.AuditRequest, actorID string) (*dto.AuditRunResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.AuditStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.AuditDownload, error)
}

// AuditHandler exposes asynchronous integrity audits.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// Create godoc
// @Summary Queue an integrity audit
// @Tags Integrity
// @Accept json
// @Produce json
// @Param payload body dto.AuditRequest true "Audit options"
// @Success 202 {object} response.Envelope
// @Router /integrity/audits [post]
func (h *AuditHandler) Create(c *gin.Context) {
	var req dto.AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid audit payload"))
		return
	}
	resp, err := h.service.CreateRun(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, resp)
}

// Status godoc
// @Summary Audit run status
// @Tags Integrity
// @Produce json
// @Param id path string true "Audit run ID"
// @Success 200 {object} response.Envelope
// @Router /integrity/audits/{id} [get]
func (h *AuditHandler) Status(c *gin.Context) {
	resp, err := h.service.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Download godoc
// @Summary Download an audit export
// @Tags Integrity
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /integrity/audits/download/{token} [get]
func (h *AuditHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, download.Filename, download.ContentType, download.Data)
}
