package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/normalize"
	"github.com/caisseapp/backoffice/internal/service"
	"github.com/caisseapp/backoffice/internal/store"
)

type SalesHandler struct {
	service *service.SalesService
}

func NewSalesHandler(service *service.SalesService) *SalesHandler {
	return &SalesHandler{service: service}
}

func (h *SalesHandler) List(c *gin.Context) {
	sales, err := h.service.List(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales, "count": len(sales)})
}

type addSaleRequest struct {
	Product  string  `json:"product" binding:"required"`
	Category string  `json:"category"`
	Register string  `json:"register"`
	Date     string  `json:"date"`
	Seller   string  `json:"seller"`
	Quantity int     `json:"quantity" binding:"required"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

func (h *SalesHandler) Add(c *gin.Context) {
	var req struct {
		Sales []addSaleRequest `json:"sales" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	sales := make([]domain.SaleRecord, 0, len(req.Sales))
	for _, r := range req.Sales {
		date, ok := normalize.Date(r.Date)
		if !ok {
			date = now
		}
		total := r.Total
		if total == 0 {
			total = r.Price * float64(r.Quantity)
		}
		sales = append(sales, domain.SaleRecord{
			Product:  r.Product,
			Category: r.Category,
			Register: r.Register,
			Date:     date,
			Seller:   r.Seller,
			Quantity: r.Quantity,
			Price:    r.Price,
			Total:    total,
		})
	}

	count, err := h.service.Add(c.Request.Context(), sales)
	if err != nil {
		status := http.StatusInternalServerError
		var verr domain.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		}
		errorResponse(c, status, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": count})
}

func (h *SalesHandler) Update(c *gin.Context) {
	var fields store.Doc
	if err := c.ShouldBindJSON(&fields); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	delete(fields, "id")

	ok, err := h.service.Update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		status := http.StatusInternalServerError
		var verr domain.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		}
		errorResponse(c, status, err.Error())
		return
	}
	if !ok {
		errorResponse(c, http.StatusNotFound, "sale not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *SalesHandler) Archive(c *gin.Context) {
	var req struct {
		IDs        []string `json:"ids" binding:"required"`
		ArchivedBy string   `json:"archived_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.ArchiveSales(c.Request.Context(), req.IDs, req.ArchivedBy)
	c.JSON(http.StatusOK, result)
}

func (h *SalesHandler) Categorize(c *gin.Context) {
	var req struct {
		IDs           []string `json:"ids" binding:"required"`
		Category      string   `json:"category" binding:"required"`
		Subcategory   string   `json:"subcategory"`
		CategorizedBy string   `json:"categorized_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Categorize(c.Request.Context(), req.IDs, req.Category, req.Subcategory, req.CategorizedBy)
	if err != nil {
		status := http.StatusInternalServerError
		var verr domain.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		}
		errorResponse(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
