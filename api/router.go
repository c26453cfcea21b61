// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"newtube/video-api/db"
	"newtube/video-api/middleware"
	"newtube/video-api/mux"
	"newtube/video-api/service"
	"newtube/video-api/storage"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB     *gorm.DB
	Router *gin.Engine
	Videos *service.Service

	webhookSecret string
}

func NewRouter() (*API, error) {
	a := &API{
		webhookSecret: viper.GetString("mux.webhook_secret"),
	}

	db, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite database, %w", err)
	}
	a.DB = db

	makeLogger()

	artifacts, err := storage.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store, %w", err)
	}

	a.Videos = service.New(db, artifacts, mux.NewClient())

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{viper.GetString("host.cors_origin")},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true

	jwt := middleware.NewJWTMiddleware()
	rateLimit := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 10,
		Burst:             20,
	})
	maxThumbnailSize := viper.GetInt64("upload.max_thumbnail_size")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// POST /api/mux/webhook	-> Provider event ingress, signature-authenticated
		main.POST("/mux/webhook", middleware.BodySizeLimiter(1<<20), a.MuxWebhook)
	}

	videos := main.Group("/videos", rateLimit, jwt)
	{
		// POST /api/videos				-> Creates a record and an upload target
		videos.POST("", a.VideoCreate)

		// GET /api/videos/:id				-> Returns an owned video
		videos.GET("/:id", cacheFor(30), a.VideoFetch)

		// PATCH /api/videos/:id			-> Edits content metadata
		videos.PATCH("/:id", middleware.BodySizeLimiter(1<<20), a.VideoUpdate)

		// DELETE /api/videos/:id			-> Removes the video and its artifacts
		videos.DELETE("/:id", a.VideoDelete)

		// POST /api/videos/:id/thumbnail		-> Replaces the thumbnail with an upload
		videos.POST("/:id/thumbnail", middleware.BodySizeLimiter(maxThumbnailSize), a.VideoThumbnailUpload)

		// POST /api/videos/:id/thumbnail/restore	-> Regenerates the thumbnail from the provider
		videos.POST("/:id/thumbnail/restore", a.VideoRestoreThumbnail)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
