package api

import (
	"errors"
	"net/http"

	"newtube/video-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) VideoRestoreThumbnail(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	video, err := a.Videos.RestoreThumbnail(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Video not found. It either doesn't exist or you don't own it",
				"requestID": requestID,
			})
		case errors.Is(err, service.ErrNotReady):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Video has no playback id yet",
				"requestID": requestID,
			})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to restore thumbnail", zap.Error(err))
		}
		return
	}

	c.JSON(http.StatusOK, video)
}
