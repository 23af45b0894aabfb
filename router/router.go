package router

import (
	"ChunkVault/config"
	"ChunkVault/internal/handler"
	"ChunkVault/internal/service"
	"ChunkVault/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitRouter builds the HTTP routes of the object store.
func InitRouter(svc *service.ObjectService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), utils.GinLogger(), utils.CORSMiddleware(config.AppConfig.CORSOrigins))

	h := handler.NewObjectHandler(svc)
	r.GET("/", h.Index)
	r.POST("/upload", h.Upload)
	r.GET("/image/:filename", h.StreamImage)

	files := r.Group("/files")
	{
		files.GET("", h.ListFiles)
		files.GET("/:filename", h.GetFile)
		files.POST("/del/:name", h.DeleteForm)
		files.DELETE("/:name", h.Delete)
	}

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
