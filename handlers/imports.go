package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haiminhdev/callstat/services"
)

// maxUploadBytes caps switch export uploads at 100 MB.
const maxUploadBytes = 100 << 20

type ImportHandler struct {
	Ingest *services.IngestService
	Ledger *services.ImportLedgerService
}

func NewImportHandler(ingest *services.IngestService, ledger *services.ImportLedgerService) *ImportHandler {
	return &ImportHandler{Ingest: ingest, Ledger: ledger}
}

// ImportCalls ingests an uploaded switch export file.
// POST /api/calls/import (multipart form, field "file")
func (h *ImportHandler) ImportCalls(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the 100 MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	result, err := h.Ingest.ImportFile(fileHeader.Filename, file)
	if err != nil {
		// Duplicate files are a user-visible rejection, not a processing
		// failure.
		if errors.Is(err, services.ErrDuplicateFile) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "result": result})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListImports returns the recent import ledger entries.
// GET /api/calls/imports?limit=50
func (h *ImportHandler) ListImports(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.Ledger.ListEntries(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imports": entries,
		"total":   len(entries),
	})
}
