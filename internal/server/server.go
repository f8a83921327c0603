// Package server exposes the batch pipeline over HTTP using Gin.
package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"catalog-ingest/internal/ingest"
	"catalog-ingest/internal/pipeline"
)

// DefaultMaxBodyBytes caps the size of an uploaded export document.
const DefaultMaxBodyBytes int64 = 32 << 20

type batchHandler struct {
	pipeline     *pipeline.Pipeline
	store        pipeline.TxRunner
	logger       logrus.FieldLogger
	maxBodyBytes int64

	// One batch at a time per process.
	mu sync.Mutex
}

// New builds the Gin engine serving the ingestion endpoints. Request bodies
// larger than maxBodyBytes are rejected; zero or less uses DefaultMaxBodyBytes.
func New(p *pipeline.Pipeline, s pipeline.TxRunner, logger logrus.FieldLogger, maxBodyBytes int64) *gin.Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	h := &batchHandler{pipeline: p, store: s, logger: logger, maxBodyBytes: maxBodyBytes}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", handleHealth)

	api := r.Group("/api")
	{
		api.POST("/batches", h.handleBatch)
	}
	return r
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleBatch accepts a catalog export document and processes it as one batch.
func (h *batchHandler) handleBatch(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	records, err := ingest.DecodeBatch(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body exceeds limit", "limit": tooLarge.Limit})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	summary, err := h.pipeline.Process(c.Request.Context(), h.store, records)
	if err != nil {
		h.logger.WithError(err).Error("Batch request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "status": "rolled back"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
