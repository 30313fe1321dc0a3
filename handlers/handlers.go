// Package handlers exposes the services over HTTP with gin.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"heartmatch/apperr"
	"heartmatch/middleware"
	"heartmatch/services"
)

const requestTimeout = 10 * time.Second

// Handler holds the services backing every API endpoint.
type Handler struct {
	Auth    *services.AuthService
	Users   *services.UserService
	Feed    *services.FeedService
	Swipes  *services.SwipeService
	Chat    *services.ChatService
	Uploads *services.UploadService
	Push    *services.PushService
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// bindJSON decodes the body into dst, answering 400 on malformed JSON.
// Field rules are enforced by the services.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.RespondError(c, apperr.InvalidArgument("Invalid request body"))
		return false
	}
	return true
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "HeartMatch API is running",
		"time":    time.Now().Unix(),
	})
}
