package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wbs-api/internal/models"
	"github.com/noah-isme/wbs-api/internal/service"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
	"github.com/noah-isme/wbs-api/pkg/response"
)

type activityService interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error)
	Export(ctx context.Context, format string, filter models.ActivityFilter) (*service.ExportFile, error)
}

// ActivityHandler exposes the audit trail.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(svc activityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary Recent activity
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 10)"
// @Param resource query string false "Resource filter"
// @Param userId query string false "Actor filter"
// @Success 200 {object} response.Envelope
// @Router /activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	filter, err := activityFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, "Activity logs", logs, map[string]interface{}{"count": len(logs)})
}

// Export godoc
// @Summary Export activity log
// @Tags Activity
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param limit query int false "Maximum entries"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /activity/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	filter, err := activityFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.service.Export(c.Request.Context(), c.DefaultQuery("format", service.ExportFormatCSV), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func activityFilter(c *gin.Context) (models.ActivityFilter, error) {
	filter := models.ActivityFilter{
		Resource: c.Query("resource"),
		UserID:   c.Query("userId"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, appErrors.Clone(appErrors.ErrBadRequest, "limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
