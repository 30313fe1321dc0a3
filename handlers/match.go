package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"heartmatch/middleware"
)

type swipeRequest struct {
	TargetUserID string `json:"targetUserId"`
}

func (h *Handler) Like(c *gin.Context) {
	var req swipeRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Swipes.Like(ctx, middleware.CurrentUserID(c), req.TargetUserID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	message := "Like recorded!"
	switch {
	case res.AlreadyMatched:
		message = "You already matched with this user!"
	case res.IsMatch:
		message = "It's a match!"
	}
	body := gin.H{"isMatch": res.IsMatch, "message": message}
	if res.MatchID != nil {
		body["matchId"] = res.MatchID.Hex()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) Pass(c *gin.Context) {
	var req swipeRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Swipes.Pass(ctx, middleware.CurrentUserID(c), req.TargetUserID); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pass recorded"})
}

func (h *Handler) ListMatches(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	matches, err := h.Swipes.ListMatches(ctx, middleware.CurrentUserID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (h *Handler) GetMatch(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Swipes.GetMatch(ctx, middleware.CurrentUserID(c), c.Param("matchId"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) Unmatch(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Swipes.Unmatch(ctx, middleware.CurrentUserID(c), c.Param("matchId")); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unmatched successfully"})
}
