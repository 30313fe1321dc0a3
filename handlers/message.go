package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"heartmatch/middleware"
	"heartmatch/services"
)

func (h *Handler) SendMessage(c *gin.Context) {
	var req services.SendInput
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.Chat.Send(ctx, middleware.CurrentUserID(c), req)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetMessages returns one page of the conversation in chronological order.
// Malformed page or limit values fall back to the defaults.
func (h *Handler) GetMessages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultMessagePageSize)))

	ctx, cancel := requestContext(c)
	defer cancel()

	msgs, err := h.Chat.Messages(ctx, middleware.CurrentUserID(c), c.Param("matchId"), page, limit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) MarkRead(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Chat.MarkRead(ctx, middleware.CurrentUserID(c), c.Param("matchId"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read", "updated": n})
}
