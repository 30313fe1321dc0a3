package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"heartmatch/apperr"
	"heartmatch/middleware"
	"heartmatch/models"
	"heartmatch/services"
)

// PotentialMatches serves the swipe feed. latitude, longitude and
// maxDistance (km) are optional query parameters.
func (h *Handler) PotentialMatches(c *gin.Context) {
	var fq services.FeedQuery
	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"latitude", &fq.Latitude},
		{"longitude", &fq.Longitude},
		{"maxDistance", &fq.MaxDistance},
	} {
		v, ok, err := queryFloat(c, p.name)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		if ok {
			*p.dst = &v
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profiles, err := h.Feed.PotentialMatches(ctx, middleware.CurrentUserID(c), fq)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func queryFloat(c *gin.Context, name string) (float64, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, apperr.InvalidArgument("Invalid " + name)
	}
	return v, true, nil
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var upd models.ProfileUpdate
	if !bindJSON(c, &upd) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, middleware.CurrentUserID(c), upd)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"profile": u.OwnProfile(),
	})
}

func (h *Handler) GetUser(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.Users.PublicProfile(ctx, c.Param("userId"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
