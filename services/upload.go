package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"heartmatch/apperr"
	"heartmatch/storage"
)

type UploadResult struct {
	Success   bool   `json:"success"`
	ImageURL  string `json:"imageUrl"`
	IsPrimary bool   `json:"isPrimary"`
	Message   string `json:"message"`
}

type UploadService struct {
	store    storage.ImageStore
	users    *UserService
	maxBytes int64
}

func NewUploadService(store storage.ImageStore, users *UserService, maxBytes int64) *UploadService {
	return &UploadService{store: store, users: users, maxBytes: maxBytes}
}

func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// ProfileImage stores an image and appends its URL to the user's photos.
// The content type is sniffed from the bytes, not taken from the client.
func (s *UploadService) ProfileImage(ctx context.Context, userID string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, apperr.InvalidArgument("No image file provided")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.InvalidArgument(fmt.Sprintf("Image must be at most %d bytes", s.maxBytes))
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, apperr.InvalidArgument("Only image files are allowed")
	}

	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	url, err := s.store.Put(ctx, storage.ObjectName(userID, mt.Extension()), mt.String(), data)
	if err != nil {
		return nil, apperr.Internal("Server error during upload", err)
	}
	u, err := s.users.AddPhoto(ctx, userID, url)
	if err != nil {
		return nil, err
	}
	log.Info("profile image uploaded", "user", userID, "type", mt.String(), "bytes", len(data))

	return &UploadResult{
		Success:   true,
		ImageURL:  url,
		IsPrimary: len(u.Photos) == 1,
		Message:   "Image uploaded successfully",
	}, nil
}
