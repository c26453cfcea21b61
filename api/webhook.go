package api

import (
	"errors"
	"io"
	"net/http"

	"newtube/video-api/mux"
	"newtube/video-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MuxWebhook is the provider event ingress. The signature check runs over the
// exact bytes as delivered, before any parsing. Response codes steer the
// provider's retry behavior: 401 for bad signatures, 400 for payloads that
// will never parse (retrying can't help), 500 only for transient internal
// failures where a redelivery is wanted, 200 for everything else including
// event types we don't handle.
func (a *API) MuxWebhook(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Failed to read request body",
			"requestID": requestID,
		})
		return
	}

	err = mux.VerifySignature(body, c.GetHeader(mux.SignatureHeader), a.webhookSecret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid signature",
			"requestID": requestID,
		})
		return
	}

	evt, err := mux.ParseEvent(body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed event payload",
			"requestID": requestID,
		})
		return
	}

	err = a.Videos.HandleEvent(c.Request.Context(), evt)
	if err != nil {
		if errors.Is(err, service.ErrMalformedEvent) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to handle webhook event",
			zap.String("type", evt.Type),
			zap.Error(err),
		)
		return
	}

	c.Status(http.StatusOK)
}
