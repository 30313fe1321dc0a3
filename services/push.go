package services

import (
	"context"

	"github.com/charmbracelet/log"

	"heartmatch/apperr"
	"heartmatch/models"
	"heartmatch/repositories"
)

type PushSubscribeInput struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

type PushService struct {
	subs      repositories.PushSubscriptionRepository
	publicKey string
}

func NewPushService(subs repositories.PushSubscriptionRepository, vapidPublicKey string) *PushService {
	return &PushService{subs: subs, publicKey: vapidPublicKey}
}

// PublicKey returns the VAPID application server key, or "" when push is not configured.
func (s *PushService) PublicKey() string { return s.publicKey }

// Subscribe stores the browser subscription of a user, replacing any previous one.
func (s *PushService) Subscribe(ctx context.Context, userID string, in PushSubscribeInput) error {
	id, err := parseID(userID, "Invalid user id")
	if err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	sub := &models.PushSubscription{
		UserID:   id,
		Endpoint: in.Endpoint,
		Keys:     models.PushKeys{P256dh: in.Keys.P256dh, Auth: in.Keys.Auth},
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return apperr.Internal("Failed to save subscription", err)
	}
	log.Info("push subscription saved", "user", userID)
	return nil
}
