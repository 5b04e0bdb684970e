package handlers

import (
	"context"
	"net/http"
	"time"

	"timetable-lookup/models"
	"timetable-lookup/services"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	timetableService *services.TimetableService
}

func NewHealthHandler(timetables *services.TimetableService) *HealthHandler {
	return &HealthHandler{timetableService: timetables}
}

// Health проверяет доступность хранилища расписаний
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := models.HealthResponse{
		Status:  "ok",
		Time:    time.Now(),
		Storage: "ok",
	}
	if err := h.timetableService.Ping(ctx); err != nil {
		_ = c.Error(err)
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}
