package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"heartmatch/middleware"
	"heartmatch/services"
)

func (h *Handler) VAPIDPublicKey(c *gin.Context) {
	key := h.Push.PublicKey()
	if key == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": key})
}

func (h *Handler) SubscribePush(c *gin.Context) {
	var req services.PushSubscribeInput
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Push.Subscribe(ctx, middleware.CurrentUserID(c), req); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved successfully"})
}
