package handlers

import (
	"net/http"
	"time"

	"coursesearch/internal/catalog"
	"coursesearch/internal/middleware"
	"coursesearch/internal/models"
	"coursesearch/internal/moderation"
	"coursesearch/internal/utils"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	mod     *moderation.Service
	catalog *catalog.Store
}

func NewReviewHandler(mod *moderation.Service, store *catalog.Store) *ReviewHandler {
	return &ReviewHandler{mod: mod, catalog: store}
}

type reviewView struct {
	ID        uint               `json:"id"`
	CourseKey string             `json:"course_key"`
	AuthorID  uint               `json:"author_id"`
	Body      string             `json:"body,omitempty"`
	BodyHTML  string             `json:"body_html,omitempty"`
	Rating    int                `json:"rating"`
	State     models.ReviewState `json:"state"`
	CreatedAt time.Time          `json:"created_at"`

	// set only for logged in viewers of a single review
	FlaggedByMe *bool `json:"flagged_by_me,omitempty"`
}

// newReviewView hides the body of removed reviews from everyone except
// admins and the author.
func newReviewView(r models.Review, viewer moderation.Actor) reviewView {
	v := reviewView{
		ID:        r.ID,
		CourseKey: r.CourseKey,
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		State:     r.State,
		CreatedAt: r.CreatedAt,
	}
	if !r.Removed() || viewer.IsAdmin() || (viewer.ID != 0 && viewer.ID == r.AuthorID) {
		v.Body = r.Body
		v.BodyHTML = string(utils.RenderMarkdown(r.Body))
	}
	return v
}

// List 课程下的评价（不含已移除），最新在前
func (h *ReviewHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	course, err := h.catalog.Get(ctx, c.Param("key"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	viewer := middleware.CurrentActor(c)
	reviews := make([]reviewView, 0)
	for r, err := range h.mod.Reviews.ListByCourse(ctx, course.Key) {
		if err != nil {
			abortWithError(c, err)
			return
		}
		reviews = append(reviews, newReviewView(r, viewer))
	}
	c.JSON(http.StatusOK, gin.H{"course": course.Key, "reviews": reviews})
}

type submitReviewRequest struct {
	Body   string `json:"body" form:"body"`
	Rating int    `json:"rating" form:"rating"`
}

// Create 发表评价
func (h *ReviewHandler) Create(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	actor := middleware.CurrentActor(c)
	review, err := h.mod.Reviews.Submit(c.Request.Context(), c.Param("key"), actor, req.Body, req.Rating)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReviewView(review, actor))
}

// Show 单条评价，已移除的评价仍可查到（仅状态）
func (h *ReviewHandler) Show(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	review, err := h.mod.Reviews.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	viewer := middleware.CurrentActor(c)
	view := newReviewView(review, viewer)
	if viewer.ID != 0 {
		flagged, err := h.mod.Ledger.FlaggedBy(c.Request.Context(), review.ID, viewer.ID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		view.FlaggedByMe = &flagged
	}
	c.JSON(http.StatusOK, view)
}

type flagRequest struct {
	Reason string `json:"reason" form:"reason"`
	Note   string `json:"note" form:"note"`
}

// Flag 举报评价
func (h *ReviewHandler) Flag(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req flagRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	flag, err := h.mod.Ledger.FileFlag(c.Request.Context(), id, middleware.CurrentActor(c), req.Reason, req.Note)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flag_id": flag.ID, "review_id": flag.ReviewID, "reason": flag.Reason})
}

// FlagReasons lists the reasons a flag may carry.
func (h *ReviewHandler) FlagReasons(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reasons": h.mod.Policy().FlagReasons})
}
