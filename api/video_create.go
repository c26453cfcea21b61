package api

import (
	"errors"
	"net/http"

	"newtube/video-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) VideoCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	video, uploadURL, err := a.Videos.CreateVideo(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUpstreamUnavailable) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
				"error":     "Video provider unavailable",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create video", zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"video": video,
		"url":   uploadURL,
	})
}
