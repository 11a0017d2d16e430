package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	"github.com/noah-isme/nexalink-api/internal/service"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

type reportService interface {
	CreateJob(ctx context.Context, scope access.Scope, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, scope access.Scope, id string) (*dto.ReportStatusResponse, error)
	List(ctx context.Context, scope access.Scope) ([]dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes analytics report exports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Create godoc
// @Summary Queue an analytics report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReportRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.service.CreateJob(c.Request.Context(), scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// List godoc
// @Summary List report jobs
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	jobs, err := h.service.List(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// Status godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.service.GetStatus(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished report via signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Invalid("token", "token is required"))
		return
	}
	result, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	size := int64(-1)
	if info, err := result.File.Stat(); err == nil {
		size = info.Size()
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, size, contentType(result.Format), result.File, nil)
}

func contentType(format models.ReportFormat) string {
	switch format {
	case models.ReportFormatPDF:
		return "application/pdf"
	case models.ReportFormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
