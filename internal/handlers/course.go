package handlers

import (
	"net/http"

	"coursesearch/internal/catalog"
	"coursesearch/internal/services"

	"github.com/gin-gonic/gin"
)

type CourseHandler struct {
	catalog *catalog.Store
	stats   *services.StatsService
}

func NewCourseHandler(store *catalog.Store, stats *services.StatsService) *CourseHandler {
	return &CourseHandler{catalog: store, stats: stats}
}

// Show 课程详情及评价统计
func (h *CourseHandler) Show(c *gin.Context) {
	course, err := h.catalog.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	stats, err := h.stats.Get(c.Request.Context(), course.Key)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course, "stats": stats})
}
