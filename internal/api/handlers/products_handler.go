package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/service"
	"github.com/caisseapp/backoffice/internal/store"
)

type ProductsHandler struct {
	service *service.ProductService
}

func NewProductsHandler(service *service.ProductService) *ProductsHandler {
	return &ProductsHandler{service: service}
}

func (h *ProductsHandler) List(c *gin.Context) {
	products, err := h.service.List(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *ProductsHandler) Sync(c *gin.Context) {
	result, err := h.service.SyncFromSales(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProductsHandler) Refresh(c *gin.Context) {
	count, err := h.service.RefreshAllStocks(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciled": count})
}

func (h *ProductsHandler) UpdateStockConfig(c *gin.Context) {
	var cfg domain.StockConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.UpdateStockConfig(c.Request.Context(), c.Param("id"), cfg)
	if err != nil {
		status := http.StatusInternalServerError
		var verr domain.ValidationError
		switch {
		case errors.As(err, &verr):
			status = http.StatusBadRequest
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		}
		errorResponse(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductsHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		errorResponse(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
