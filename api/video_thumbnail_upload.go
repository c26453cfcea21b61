package api

import (
	"errors"
	"net/http"
	"strings"

	"newtube/video-api/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) VideoThumbnailUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request",
			"requestID": requestID,
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed multipart form",
			"requestID": requestID,
		})
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	fh := files[0]

	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open uploaded file", zap.Error(err))
		return
	}
	defer f.Close()

	mime, err := mimetype.DetectReader(f)
	if err != nil || !strings.HasPrefix(mime.String(), "image/") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Thumbnail must be an image",
			"requestID": requestID,
		})
		return
	}
	f.Seek(0, 0)

	stored, err := a.Videos.ReplaceThumbnail(c.Request.Context(), c.Param("id"), userID, fh.Filename, mime.String(), f, fh.Size)
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

		zap.L().Error("Failed to replace thumbnail", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"thumbnail_url": stored.URL,
	})
}
