package router

import (
	"coursesearch/internal/catalog"
	"coursesearch/internal/handlers"
	"coursesearch/internal/middleware"
	"coursesearch/internal/moderation"
	"coursesearch/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const sessionName = "coursesearch_session"

// Deps are the long lived services the HTTP surface depends on.
type Deps struct {
	DB            *gorm.DB
	Catalog       *catalog.Store
	Moderation    *moderation.Service
	Notifier      *services.Notifier
	Stats         *services.StatsService
	Logger        zerolog.Logger
	SessionSecret string
	SiteURL       string
}

// New builds the gin engine with every route registered.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))

	store := cookie.NewStore([]byte(d.SessionSecret))
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(d.DB, d.Notifier))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	courseHandler := handlers.NewCourseHandler(d.Catalog, d.Stats)
	reviewHandler := handlers.NewReviewHandler(d.Moderation, d.Catalog)
	adminHandler := handlers.NewAdminHandler(d.Moderation)
	notificationHandler := handlers.NewNotificationHandler(d.Notifier)
	seoHandler := handlers.NewSEOHandler(d.Catalog, d.Stats, d.SiteURL)

	// 公共路由 (Public Routes)
	r.GET("/courses/:key", courseHandler.Show)         // 课程详情
	r.GET("/courses/:key/reviews", reviewHandler.List) // 课程评价列表
	r.GET("/reviews/:id", reviewHandler.Show)          // 单条评价
	r.GET("/flag-reasons", reviewHandler.FlagReasons)  // 可选举报理由
	r.GET("/sitemap.xml", seoHandler.SitemapXML)       // 站点地图
	r.GET("/robots.txt", seoHandler.RobotsTxt)         // robots.txt

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/courses/:key/reviews", reviewHandler.Create) // 发表评价
		authorized.POST("/reviews/:id/flags", reviewHandler.Flag)      // 举报评价

		authorized.POST("/notifications/:id/read", notificationHandler.Read)    // 标记单条通知为已读
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll) // 全部通知标记为已读
	}

	// 仪表盘路由 (Dashboard Routes)
	dashboard := r.Group("/dashboard")
	dashboard.Use(middleware.AuthRequired())
	{
		dashboard.GET("/notifications", notificationHandler.List) // 我的通知列表
	}

	// 管理后台 (Admin Routes)
	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/reviews/flagged", adminHandler.ListFlagged)  // 待审核队列
		admin.GET("/reviews/:id/flags", adminHandler.Flags)      // 举报历史
		admin.POST("/reviews/:id/resolve", adminHandler.Resolve) // 裁决
	}
}
