package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/caisseapp/backoffice/internal/api/handlers"
	"github.com/caisseapp/backoffice/internal/api/middleware"
	"github.com/caisseapp/backoffice/internal/service"
)

// Services bundles everything the router exposes. Export may be nil when
// object storage is not configured; its routes are then omitted.
type Services struct {
	Sales     *service.SalesService
	Products  *service.ProductService
	Dashboard *service.DashboardService
	Alerts    *service.AlertService
	Export    *service.ExportService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if normalized, allowAll := normalizeAllowedOrigins(allowedOrigins); allowAll {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	} else if len(normalized) > 0 {
		corsConfig.AllowOrigins = normalized
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	salesHandler := handlers.NewSalesHandler(services.Sales)
	salesGroup := apiGroup.Group("/sales")
	{
		salesGroup.GET("", salesHandler.List)
		salesGroup.POST("", salesHandler.Add)
		salesGroup.PUT("/:id", salesHandler.Update)
		salesGroup.POST("/archive", salesHandler.Archive)
		salesGroup.POST("/categorize", salesHandler.Categorize)
	}

	productsHandler := handlers.NewProductsHandler(services.Products)
	productsGroup := apiGroup.Group("/products")
	{
		productsGroup.GET("", productsHandler.List)
		productsGroup.POST("/sync", productsHandler.Sync)
		productsGroup.POST("/refresh", productsHandler.Refresh)
		productsGroup.PUT("/:id/stock-config", productsHandler.UpdateStockConfig)
		productsGroup.DELETE("/:id", productsHandler.Delete)
	}

	dashboardHandler := handlers.NewDashboardHandler(services.Dashboard)
	apiGroup.GET("/dashboard/stats", dashboardHandler.Stats)

	alertsHandler := handlers.NewAlertsHandler(services.Alerts)
	alertsGroup := apiGroup.Group("/alerts")
	{
		alertsGroup.GET("", alertsHandler.List)
		alertsGroup.PUT("/:id/read", alertsHandler.MarkRead)
	}

	if services.Export != nil {
		exportsHandler := handlers.NewExportsHandler(services.Export)
		exportsGroup := apiGroup.Group("/exports")
		{
			exportsGroup.POST("/sales", exportsHandler.ExportSales)
			exportsGroup.GET("", exportsHandler.List)
			exportsGroup.GET("/download", exportsHandler.Download)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
