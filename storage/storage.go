// Package storage puts uploaded images somewhere they can be served from.
package storage

import (
	"context"
	"path"

	"github.com/google/uuid"
)

// ImageStore saves an image under name and returns its public URL.
type ImageStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// ObjectName builds a collision-free object name for a user's image.
func ObjectName(userID, ext string) string {
	return path.Join("photos", userID, uuid.NewString()+ext)
}
