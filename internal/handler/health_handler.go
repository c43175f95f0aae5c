package handler

import (
	"net/http"

	"bakerycrm/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.GET("/api/test", h.Test)
}

// Health reports whether the API and its database are reachable
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// @Summary      Smoke test
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/test [get]
func (h *HealthHandler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Bakery CRM API working"}))
}
