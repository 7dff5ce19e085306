package router

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/haiminhdev/callstat/handlers"
	"github.com/haiminhdev/callstat/services"
)

// NewGinRouter wires the ingestion and aggregation services behind the HTTP
// surface. The rollup scheduler is owned by main so the queue can be drained
// on shutdown.
func NewGinRouter(pg *sql.DB, redisClient *redis.Client, scheduler services.RollupScheduler) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize services
	ledgerService := services.NewImportLedgerService(pg)
	loaderService := services.NewBulkLoaderService(pg)
	ingestService := services.NewIngestService(pg, ledgerService, loaderService)
	ingestService.SetRollupScheduler(scheduler)
	summaryService := services.NewSummaryService(pg, redisClient)
	lifecycleService := services.NewLifecycleService(pg, redisClient)

	// Initialize handlers
	importHandler := handlers.NewImportHandler(ingestService, ledgerService)
	summaryHandler := handlers.NewSummaryHandler(summaryService)
	adminHandler := handlers.NewAdminHandler(lifecycleService)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		calls := api.Group("/calls")
		{
			calls.POST("/import", importHandler.ImportCalls)
			calls.GET("/imports", importHandler.ListImports)
			calls.GET("/export", summaryHandler.ExportCalls)
			calls.DELETE("", adminHandler.DeleteByDate)

			summary := calls.Group("/summary")
			{
				summary.GET("/hourly", summaryHandler.GetHourlySummary)
				summary.GET("/daily", summaryHandler.GetDailySummary)
				summary.GET("/range", summaryHandler.GetRangeSummary)
			}
		}

		api.POST("/admin/reset", adminHandler.ResetAll)
	}

	return r
}
