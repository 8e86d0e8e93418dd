package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/fanout-engine/config"
	"github.com/d60-Lab/fanout-engine/internal/api/handler"
	"github.com/d60-Lab/fanout-engine/pkg/jwtauth"
)

// NewRouter 组装中间件与路由
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(otelgin.Middleware("fanout-engine"))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/posts", h.PublishPost)
		v1.PUT("/posts/:id", h.EditPost)
		v1.DELETE("/posts/:id", h.DeletePost)

		v1.POST("/interactions", h.AddInteraction)
		v1.DELETE("/interactions/:id", h.UndoInteraction)

		rel := v1.Group("/relations")
		{
			rel.POST("/follow", h.Follow)
			rel.POST("/unfollow", h.Unfollow)
			rel.GET("/:identity_id/following", h.ListFollowing)
			rel.GET("/:identity_id/fans", h.ListFans)
		}

		v1.GET("/timeline/:identity_id", h.Timeline)

		admin := v1.Group("/admin", jwtauth.Middleware(cfg.Auth.JWTSecret))
		{
			admin.GET("/fanouts/stats", h.FanOutStats)
			admin.POST("/fanouts/:id/retry", h.RetryFanOut)
		}
	}
	return r
}
