package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	Catalog  *handlers.CatalogHandler
	Expenses *handlers.ExpenseHandler
	Reports  *handlers.ReportHandler
	Payables *handlers.PayablesHandler
	Messages *handlers.MessageHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	api.POST("/ingredients", h.Catalog.SaveIngredient)
	api.PUT("/ingredients/:id", h.Catalog.SaveIngredient)
	api.DELETE("/ingredients/:id", h.Catalog.DeleteIngredient)
	api.PUT("/ingredients/:id/price", h.Catalog.UpdatePrice)
	api.GET("/ingredients/:id/cost", h.Catalog.ResolveCost)
	api.POST("/menu-items", h.Catalog.SaveMenuItem)
	api.PUT("/menu-items/:id", h.Catalog.SaveMenuItem)
	api.GET("/menu-items/:id/cost", h.Catalog.RecipeCost)
	api.PUT("/menu-items/:id/recipe/:ingredient_id", h.Catalog.UpsertRecipeLine)
	api.DELETE("/menu-items/:id/recipe/:ingredient_id", h.Catalog.RemoveRecipeLine)
	api.PUT("/sales", h.Catalog.UpsertSales)

	api.POST("/vendors", h.Expenses.SaveVendor)
	api.POST("/categories", h.Expenses.SaveCategory)
	api.POST("/mapping-rules", h.Expenses.SaveMappingRule)
	api.POST("/expenses", h.Expenses.SaveExpense)
	api.POST("/mappings/apply", h.Expenses.ApplyMappings)
	api.PUT("/lines/:id/mapping", h.Expenses.MapLine)
	api.DELETE("/lines/:id/lock", h.Expenses.UnlockLine)
	api.GET("/lines/:id/suggestions", h.Expenses.SuggestIngredients)

	reports := api.Group("/reports")
	reports.GET("/pnl", h.Reports.PeriodReport)
	reports.GET("/cash-flow", h.Reports.CashFlow)
	reports.GET("/daily", h.Reports.DailySummary)
	reports.GET("/vendors", h.Reports.VendorAnalysis)
	reports.POST("/budget", h.Reports.BudgetVsActual)
	reports.GET("/menu-engineering", h.Reports.MenuEngineering)
	reports.GET("/stale-prices", h.Catalog.StalePrices)
	reports.GET("/schedule-c", h.Reports.ScheduleC)
	reports.GET("/quarterly-estimates", h.Reports.QuarterlyEstimates)
	reports.GET("/1099", h.Reports.Form1099)
	reports.GET("/export.xlsx", h.Reports.ExportWorkbook)
	reports.GET("/snapshots", h.Reports.Snapshots)

	api.POST("/payroll/runs", h.Payables.RunPayroll)

	api.POST("/invoices", h.Payables.CreateInvoice)
	api.PATCH("/invoices/:id", h.Payables.UpdateInvoice)
	api.DELETE("/invoices/:id", h.Payables.DeleteInvoice)
	api.POST("/invoices/:id/approve", h.Payables.ApproveInvoice)
	api.POST("/invoices/:id/reject", h.Payables.RejectInvoice)
	api.POST("/invoices/:id/post", h.Payables.PostInvoice)

	api.POST("/batches", h.Payables.CreateBatch)
	api.DELETE("/batches/:id", h.Payables.DeleteBatch)
	api.POST("/batches/:id/approve", h.Payables.ApproveBatch)
	api.POST("/batches/:id/process", h.Payables.ProcessBatch)

	if h.Messages != nil {
		api.POST("/send-message", h.Messages.SendMessage)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
