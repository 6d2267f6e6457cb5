package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/timeline-engine/internal/ledger"
	"github.com/d60-Lab/timeline-engine/pkg/response"
)

// LedgerProgress 用签名令牌查询异步批次进度
// @Summary 批次进度
// @Tags 账本
// @Param token path string true "签名令牌"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/ledger/{token} [get]
func (h *Handler) LedgerProgress(c *gin.Context) {
	batchID, err := h.ledger.ParseToken(c.Param("token"))
	if err != nil {
		// 伪造或过期的令牌与不存在的批次同样对待
		response.NotFound(c, "unknown batch")
		return
	}
	batch, err := h.ledger.Get(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			response.NotFound(c, "unknown batch")
			return
		}
		response.InternalError(c, err)
		return
	}
	pending, err := batch.Pending(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	total, err := batch.Total(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	processed, err := batch.Processed(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{
		"pending":   pending,
		"total":     total,
		"processed": processed,
		"complete":  pending == 0,
	})
}
