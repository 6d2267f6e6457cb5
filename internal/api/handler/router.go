package handler

import (
	"sync"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/timeline-engine/pkg/response"
)

// SetupRouter 注册全部路由与中间件
func SetupRouter(h *Handler, mode string) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("timeline-engine"))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) { response.Success(c, gin.H{"status": "ok"}) })

	v1 := r.Group("/api/v1")

	// 公共读取端点限流，登录态端点不限
	public := v1.Group("", perIPRateLimit(20, 40))
	{
		public.GET("/timelines/public", h.PublicTimeline)
		public.GET("/timelines/tag/:name", h.TagTimeline)
		public.GET("/trending/tags", h.TrendingTags)
		public.GET("/trending/tags/:name", h.TagTrendingStatus)
	}

	v1.GET("/timelines/home", h.HomeTimeline)
	v1.POST("/timelines/home/regenerate", h.RegenerateHome)
	v1.GET("/timelines/group/:group_id", h.GroupTimeline)

	v1.POST("/statuses", h.PublishStatus)
	v1.DELETE("/statuses/:id", h.DeleteStatus)
	v1.POST("/statuses/:id/action", h.StatusAction)

	v1.POST("/relations/follow", h.Follow)
	v1.POST("/relations/block", h.Block)
	v1.POST("/relations/mute", h.Mute)
	v1.POST("/relations/block-domain", h.BlockDomain)

	v1.PUT("/retention/:account_id", h.PutRetentionPolicy)
	v1.GET("/retention/:account_id", h.GetRetentionPolicy)

	v1.GET("/ledger/:token", h.LedgerProgress)

	return r
}

// perIPRateLimit 按来源 IP 的令牌桶限流
func perIPRateLimit(rps float64, burst int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		lim, ok := limiters[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[ip] = lim
		}
		mu.Unlock()
		if !lim.Allow() {
			response.TooManyRequests(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
