package api

import (
	"errors"
	"net/http"

	"newtube/video-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) VideoDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	err := a.Videos.DeleteVideo(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Video not found. It either doesn't exist or you don't own it",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete video", zap.Error(err))
		return
	}

	c.Status(http.StatusOK)
}
