package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haiminhdev/callstat/services"
)

// maxRangeDays bounds range queries; the aggregation engine itself does not
// enforce this, the HTTP surface does.
const maxRangeDays = 90

type SummaryHandler struct {
	Summary *services.SummaryService
}

func NewSummaryHandler(summary *services.SummaryService) *SummaryHandler {
	return &SummaryHandler{Summary: summary}
}

// GetHourlySummary returns the 24 hourly rollups for a date.
// GET /api/calls/summary/hourly?date=2024-01-01
func (h *SummaryHandler) GetHourlySummary(c *gin.Context) {
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}

	rollups, err := h.Summary.GetHourlyRollups(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":    date.Format("2006-01-02"),
		"rollups": rollups,
	})
}

// GetDailySummary returns one date's summary.
// GET /api/calls/summary/daily?date=2024-01-01
func (h *SummaryHandler) GetDailySummary(c *gin.Context) {
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}

	summary, err := h.Summary.GetDailySummary(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetRangeSummary returns the composed summary over an inclusive date range.
// GET /api/calls/summary/range?start_date=2024-01-01&end_date=2024-01-31
func (h *SummaryHandler) GetRangeSummary(c *gin.Context) {
	start, end, ok := queryDateRange(c)
	if !ok {
		return
	}

	summary, err := h.Summary.GetRangeSummary(start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportCalls streams the raw events of a date range as CSV.
// GET /api/calls/export?start_date=2024-01-01&end_date=2024-01-31
func (h *SummaryHandler) ExportCalls(c *gin.Context) {
	start, end, ok := queryDateRange(c)
	if !ok {
		return
	}

	fileName := fmt.Sprintf("call_events_%s_%s.csv", start.Format("20060102"), end.Format("20060102"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := h.Summary.ExportEventsCSV(start, end, c.Writer); err != nil {
		// Headers may already be out; all we can do is abort the stream.
		c.Abort()
		return
	}
}

// queryDate parses a required YYYY-MM-DD query parameter, writing the error
// response itself when the value is missing or malformed.
func queryDate(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required (YYYY-MM-DD)"})
		return time.Time{}, false
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be formatted YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

func queryDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, ok := queryDate(c, "start_date")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := queryDate(c, "end_date")
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not be before start_date"})
		return time.Time{}, time.Time{}, false
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > maxRangeDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("date range cannot exceed %d days", maxRangeDays)})
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}
