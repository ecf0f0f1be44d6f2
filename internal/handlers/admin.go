package handlers

import (
	"net/http"

	"coursesearch/internal/middleware"
	"coursesearch/internal/models"
	"coursesearch/internal/moderation"
	"coursesearch/internal/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	mod *moderation.Service
}

func NewAdminHandler(mod *moderation.Service) *AdminHandler {
	return &AdminHandler{mod: mod}
}

type queueEntry struct {
	models.Review
	ActiveFlags int64 `json:"active_flags"`
}

// ListFlagged 待审核队列，先进先出
func (h *AdminHandler) ListFlagged(c *gin.Context) {
	ctx := c.Request.Context()

	// sqlite has a single connection, so drain the rows before counting
	reviews, err := moderation.Collect(h.mod.Queue.ListFlagged(ctx))
	if err != nil {
		abortWithError(c, err)
		return
	}

	entries := make([]queueEntry, 0, len(reviews))
	for _, r := range reviews {
		n, err := h.mod.Ledger.CountActive(ctx, r.ID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		entries = append(entries, queueEntry{Review: r, ActiveFlags: n})
	}
	pending, err := h.mod.Queue.Pending(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pending":   pending,
		"threshold": h.mod.Policy().FlagThreshold,
		"reviews":   entries,
	})
}

// Flags 评价的举报历史及裁决记录
func (h *AdminHandler) Flags(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	review, err := h.mod.Reviews.Get(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	flags, err := h.mod.Ledger.History(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	resolutions, err := h.mod.Engine.Resolutions(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review, "flags": flags, "resolutions": resolutions})
}

type resolveRequest struct {
	Outcome models.Outcome `json:"outcome" form:"outcome"`
}

// Resolve 维持举报（移除评价）或驳回举报（恢复显示）
func (h *AdminHandler) Resolve(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req resolveRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.mod.Engine.Resolve(c.Request.Context(), id, middleware.CurrentActor(c), req.Outcome)
	if err != nil {
		abortWithError(c, err)
		return
	}
	review, err := h.mod.Reviews.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolution": res, "review": review})
}
