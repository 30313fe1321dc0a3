package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"heartmatch/apperr"
	"heartmatch/middleware"
)

// UploadProfileImage accepts a multipart form with the file in field "image".
func (h *Handler) UploadProfileImage(c *gin.Context) {
	limit := h.Uploads.MaxBytes()
	// leave room for the multipart framing around the file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	fh, err := c.FormFile("image")
	if err != nil {
		middleware.RespondError(c, apperr.InvalidArgument("No image file provided"))
		return
	}
	if fh.Size > limit {
		middleware.RespondError(c, apperr.InvalidArgument("Image file is too large"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		middleware.RespondError(c, apperr.Internal("Server error during upload", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		middleware.RespondError(c, apperr.Internal("Server error during upload", err))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Uploads.ProfileImage(ctx, middleware.CurrentUserID(c), data)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
