package handler

import (
	"net/http"
	"time"

	"bakerycrm/internal/service"
	"bakerycrm/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	revenueService    service.RevenueService
}

func NewStatisticsHandler(statisticsService service.StatisticsService, revenueService service.RevenueService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, revenueService: revenueService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("", h.GetStatistics)
		statsGroup.GET("/revenue", h.GetRevenueStatistics)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Kanban column counts, completed revenue, pending invoice total, low stock and top products
// @Tags         Statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339 or YYYY-MM-DD)"
// @Param        end_date   query string false "End Date (RFC3339 or YYYY-MM-DD)"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      500 {object} response.Response
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDate, endDate, ok := dateRange(c)
	if !ok {
		return
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetRevenueStatistics returns billed amounts per period
// @Summary      Revenue per period
// @Description  Sums pending, issued and paid invoices by issue date
// @Tags         Statistics
// @Produce      json
// @Param        group_by   query string false "day, week or month (default day)"
// @Param        start_date query string false "Start Date (RFC3339 or YYYY-MM-DD)"
// @Param        end_date   query string false "End Date (RFC3339 or YYYY-MM-DD)"
// @Success      200 {object} response.Response{data=[]service.RevenueDataPoint}
// @Failure      400 {object} response.Response
// @Router       /api/statistics/revenue [get]
func (h *StatisticsHandler) GetRevenueStatistics(c *gin.Context) {
	startDate, endDate, ok := dateRange(c)
	if !ok {
		return
	}

	points, err := h.revenueService.GetRevenueStatistics(c.Request.Context(), service.RevenueFilter{
		GroupBy:   c.Query("group_by"),
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}

// dateRange reads start_date/end_date, defaulting to the current month. It writes the 400 itself.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := now

	if raw := c.Query("start_date"); raw != "" {
		t, err := parseDate(raw, false)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339 or YYYY-MM-DD"))
			return startDate, endDate, false
		}
		startDate = t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parseDate(raw, true)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339 or YYYY-MM-DD"))
			return startDate, endDate, false
		}
		endDate = t
	}
	if endDate.Before(startDate) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "end_date must not be before start_date"))
		return startDate, endDate, false
	}
	return startDate, endDate, true
}

// parseDate accepts RFC3339 or a bare date; a bare end date covers the whole day.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
