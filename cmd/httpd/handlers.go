package httpd

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cmdcommon "github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/common"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/pipeline"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/reconcile"
)

// newRouter builds the gin engine with all API routes.
func newRouter(deps *cmdcommon.Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/scrape", scrapeHandler(deps))
		api.POST("/prices/batch", priceBatchHandler(deps))
		api.GET("/runs", listRunsHandler(deps))
		api.GET("/runs/:id", getRunHandler(deps))
	}

	return router
}

// scrapeRequest is the body of POST /api/v1/scrape.
type scrapeRequest struct {
	SeedURL     string `json:"seed_url" binding:"required,url"`
	MaxDepth    *int   `json:"max_depth,omitempty"`
	Category    string `json:"category,omitempty"`
	SkipFlagged bool   `json:"skip_flagged,omitempty"`
}

// scrapeHandler runs the pipeline synchronously for one seed URL.
func scrapeHandler(deps *cmdcommon.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		depth := deps.Config.Crawler.MaxDepth
		if req.MaxDepth != nil {
			depth = *req.MaxDepth
		}

		category := domain.ContentCategory(req.Category)
		if req.Category == "" {
			category = domain.CategoryAutoDetect
		}

		result := deps.Pipeline.Run(c.Request.Context(), req.SeedURL, pipeline.Options{
			MaxDepth:    depth,
			Category:    category,
			SkipFlagged: req.SkipFlagged,
		})

		status := http.StatusOK
		if !result.Success {
			status = http.StatusUnprocessableEntity
		}

		c.JSON(status, result)
	}
}

// priceBatchRequest is the body of POST /api/v1/prices/batch.
type priceBatchRequest struct {
	Records []reconcile.PriceUpdateRecord `json:"records" binding:"required,min=1,dive"`
}

// priceBatchHandler applies the price-update batch protocol.
func priceBatchHandler(deps *cmdcommon.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req priceBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		summary := deps.Engine.ApplyPriceBatch(c.Request.Context(), req.Records)

		status := http.StatusOK
		if summary.Errors > 0 {
			status = http.StatusMultiStatus
		}

		c.JSON(status, summary)
	}
}

// listRunsHandler returns recent scrape runs.
func listRunsHandler(deps *cmdcommon.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := deps.Runs.List(c.Request.Context(), 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

// getRunHandler returns one scrape run by id.
func getRunHandler(deps *cmdcommon.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := deps.Runs.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if run == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}

		c.JSON(http.StatusOK, run)
	}
}
