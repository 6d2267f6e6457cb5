package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/timeline-engine/internal/feed"
	"github.com/d60-Lab/timeline-engine/pkg/logger"
	"github.com/d60-Lab/timeline-engine/pkg/response"
)

// HomeTimeline 读取主页时间线
// @Summary 主页时间线
// @Tags 时间线
// @Param account_id query int true "账号ID"
// @Param max_id query int false "上界（不含）"
// @Param limit query int false "条数" default(20)
// @Success 200 {object} response.Response{data=[]feed.StatusRef}
// @Router /api/v1/timelines/home [get]
func (h *Handler) HomeTimeline(c *gin.Context) {
	ownerID := viewerID(c)
	if ownerID == 0 {
		response.BadRequest(c, "account_id is required")
		return
	}
	viewer, err := h.viewers.Load(c.Request.Context(), ownerID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	refs, err := h.reader.Get(c.Request.Context(), feed.Request{
		Kind:    feed.KindHome,
		OwnerID: ownerID,
		Viewer:  viewer,
		MaxID:   queryInt64(c, "max_id"),
		Limit:   queryInt(c, "limit", 20),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, refs)
}

// PublicTimeline 读取公共时间线
// @Summary 公共时间线
// @Tags 时间线
// @Param account_id query int false "账号ID（匿名可省略）"
// @Param local query bool false "仅本站"
// @Param remote query bool false "仅外站"
// @Param max_id query int false "上界（不含）"
// @Param limit query int false "条数" default(20)
// @Success 200 {object} response.Response{data=[]feed.StatusRef}
// @Router /api/v1/timelines/public [get]
func (h *Handler) PublicTimeline(c *gin.Context) {
	viewer, err := h.viewers.Load(c.Request.Context(), viewerID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	refs, err := h.reader.Get(c.Request.Context(), feed.Request{
		Kind:       feed.KindPublic,
		Viewer:     viewer,
		MaxID:      queryInt64(c, "max_id"),
		Limit:      queryInt(c, "limit", 20),
		LocalOnly:  queryBool(c, "local"),
		RemoteOnly: queryBool(c, "remote"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, refs)
}

// TagTimeline 读取话题时间线
// @Summary 话题时间线
// @Tags 时间线
// @Param name path string true "标签名"
// @Param any query []string false "并集标签"
// @Param all query []string false "交集标签"
// @Param none query []string false "排除标签"
// @Param max_id query int false "上界（不含）"
// @Param limit query int false "条数" default(20)
// @Success 200 {object} response.Response{data=[]feed.StatusRef}
// @Router /api/v1/timelines/tag/{name} [get]
func (h *Handler) TagTimeline(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		response.BadRequest(c, "tag name is required")
		return
	}
	tag, err := h.tagByName(c, name)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if tag == 0 {
		response.Success(c, []feed.StatusRef{})
		return
	}
	viewer, err := h.viewers.Load(c.Request.Context(), viewerID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	refs, err := h.reader.Get(c.Request.Context(), feed.Request{
		Kind:    feed.KindTag,
		OwnerID: tag,
		Viewer:  viewer,
		MaxID:   queryInt64(c, "max_id"),
		Limit:   queryInt(c, "limit", 20),
		Tag:     name,
		Combination: feed.TagCombinationFromModes(map[string][]string{
			"any":  c.QueryArray("any"),
			"all":  c.QueryArray("all"),
			"none": c.QueryArray("none"),
		}),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, refs)
}

// GroupTimeline 读取圈组时间线
// @Summary 圈组时间线
// @Tags 时间线
// @Param group_id path int true "圈组ID"
// @Param account_id query int false "账号ID"
// @Param max_id query int false "上界（不含）"
// @Param limit query int false "条数" default(20)
// @Success 200 {object} response.Response{data=[]feed.StatusRef}
// @Router /api/v1/timelines/group/{group_id} [get]
func (h *Handler) GroupTimeline(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil || groupID <= 0 {
		response.BadRequest(c, "invalid group_id")
		return
	}
	viewer, err := h.viewers.Load(c.Request.Context(), viewerID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	refs, err := h.reader.Get(c.Request.Context(), feed.Request{
		Kind:    feed.KindGroup,
		OwnerID: groupID,
		Viewer:  viewer,
		MaxID:   queryInt64(c, "max_id"),
		Limit:   queryInt(c, "limit", 20),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, refs)
}

// RegenerateHome 触发主页时间线重建，返回可轮询的进度令牌
// @Summary 重建主页时间线
// @Tags 时间线
// @Param account_id query int true "账号ID"
// @Success 200 {object} response.Response{data=map[string]string}
// @Router /api/v1/timelines/home/regenerate [post]
func (h *Handler) RegenerateHome(c *gin.Context) {
	ownerID := viewerID(c)
	if ownerID == 0 {
		response.BadRequest(c, "account_id is required")
		return
	}
	batch, err := h.ledger.Create(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	token, err := h.ledger.SignedToken(batch.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	go func() {
		// 重建在后台跑，进度通过账本令牌查询
		if err := h.regenerator.Regenerate(context.Background(), ownerID, batch); err != nil {
			logger.Error("home regeneration failed", zap.Int64("account", ownerID), zap.Error(err))
		}
	}()
	response.Success(c, gin.H{"token": token})
}
