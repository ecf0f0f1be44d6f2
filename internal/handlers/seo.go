package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"

	"coursesearch/internal/catalog"
	"coursesearch/internal/models"
	"coursesearch/internal/services"

	"github.com/gin-gonic/gin"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type SEOHandler struct {
	catalog *catalog.Store
	stats   *services.StatsService
	siteURL string
}

func NewSEOHandler(store *catalog.Store, stats *services.StatsService, siteURL string) *SEOHandler {
	return &SEOHandler{catalog: store, stats: stats, siteURL: siteURL}
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

// RobotsTxt 返回 robots.txt
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

# 禁止爬取用户后台和管理后台
Disallow: /dashboard/
Disallow: /admin/
Disallow: /notifications/

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML 每门课程一个 <url>。lastmod 取课程更新时间与最新评价时间中较晚者。
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.stats.All(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}

	set := urlSet{XMLNS: sitemapNS, URLs: []sitemapURL{}}
	for course, err := range h.catalog.List(ctx) {
		if err != nil {
			abortWithError(c, err)
			return
		}
		set.URLs = append(set.URLs, h.courseURL(course, stats[course.Key]))
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), out...))
}

func (h *SEOHandler) courseURL(course models.Course, st models.CourseStats) sitemapURL {
	lastmod := course.UpdatedAt
	if st.LastReviewAt != nil && st.LastReviewAt.After(lastmod) {
		lastmod = *st.LastReviewAt
	}

	// 评价多的课程更常变化
	priority, freq := 0.6, "monthly"
	switch {
	case st.ReviewCount >= 20:
		priority, freq = 0.8, "daily"
	case st.ReviewCount > 0:
		priority, freq = 0.7, "weekly"
	}

	u := sitemapURL{
		Loc:        fmt.Sprintf("%s/courses/%s", h.siteURL, url.PathEscape(course.Key)),
		ChangeFreq: freq,
		Priority:   priority,
	}
	if !lastmod.IsZero() {
		u.LastMod = lastmod.UTC().Format("2006-01-02")
	}
	return u
}
