package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/service"
	"github.com/caisseapp/backoffice/internal/store"
)

type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(service *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

type AlertsHandler struct {
	service *service.AlertService
}

func NewAlertsHandler(service *service.AlertService) *AlertsHandler {
	return &AlertsHandler{service: service}
}

func (h *AlertsHandler) List(c *gin.Context) {
	alerts, err := h.service.List(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

func (h *AlertsHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		errorResponse(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

type ExportsHandler struct {
	service *service.ExportService
}

func NewExportsHandler(service *service.ExportService) *ExportsHandler {
	return &ExportsHandler{service: service}
}

func (h *ExportsHandler) ExportSales(c *gin.Context) {
	var req struct {
		Archived bool `json:"archived"`
	}
	// Body is optional; default exports the active set.
	_ = c.ShouldBindJSON(&req)

	key, err := h.service.ExportSales(c.Request.Context(), req.Archived)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key})
}

func (h *ExportsHandler) List(c *gin.Context) {
	objects, err := h.service.ListExports(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"exports": objects, "count": len(objects)})
}

func (h *ExportsHandler) Download(c *gin.Context) {
	key := c.Query("key")
	data, err := h.service.DownloadExport(c.Request.Context(), key)
	if err != nil {
		status := http.StatusInternalServerError
		var verr domain.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		}
		errorResponse(c, status, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/csv", data)
}
