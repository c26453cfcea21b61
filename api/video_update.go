package api

import (
	"errors"
	"net/http"
	"slices"

	"newtube/video-api/model"
	"newtube/video-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) VideoUpdate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data service.VideoUpdate
	if err := c.BindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	if data.Visibility != nil && !slices.Contains([]string{model.VisibilityPublic, model.VisibilityPrivate}, *data.Visibility) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid visibility",
			"requestID": requestID,
		})
		return
	}

	video, err := a.Videos.UpdateVideo(c.Request.Context(), c.Param("id"), userID, data)
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

		zap.L().Error("Failed to update video", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, video)
}
