package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/timeline-engine/pkg/response"
)

type trendingTag struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
}

// TrendingTags 当前热门标签
// @Summary 热门标签
// @Tags 趋势
// @Param limit query int false "条数" default(10)
// @Param raw query bool false "包含被运营排除的标签"
// @Success 200 {object} response.Response{data=[]trendingTag}
// @Router /api/v1/trending/tags [get]
func (h *Handler) TrendingTags(c *gin.Context) {
	tags, err := h.trending.Get(c.Request.Context(), queryInt(c, "limit", 10), !queryBool(c, "raw"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]trendingTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, trendingTag{ID: t.ID, Name: t.Name, MaxScore: t.MaxScore})
	}
	response.Success(c, out)
}

// TagTrendingStatus 查询单个标签是否在热门窗口内
// @Summary 标签热度状态
// @Tags 趋势
// @Param name path string true "标签名"
// @Success 200 {object} response.Response{data=map[string]bool}
// @Router /api/v1/trending/tags/{name} [get]
func (h *Handler) TagTrendingStatus(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		response.BadRequest(c, "tag name is required")
		return
	}
	trending, err := h.trending.Trending(c.Request.Context(), name)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"trending": trending})
}
