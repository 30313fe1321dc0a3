package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/models"
	"heartmatch/repositories"
	"heartmatch/services"
)

const pushTimeout = 10 * time.Second

// PushMessage is the JSON body the service worker receives.
type PushMessage struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

type sendFunc func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// PushNotifier sends browser push notifications for new matches and new
// messages. Other events are ignored.
type PushNotifier struct {
	subs       repositories.PushSubscriptionRepository
	subscriber string
	publicKey  string
	privateKey string
	send       sendFunc
}

func NewPushNotifier(subs repositories.PushSubscriptionRepository, subject, publicKey, privateKey string) *PushNotifier {
	return &PushNotifier{
		subs:       subs,
		subscriber: subject,
		publicKey:  publicKey,
		privateKey: privateKey,
		send:       webpush.SendNotification,
	}
}

// Notify sends in the background so the caller's request is never held up by
// the push service.
func (p *PushNotifier) Notify(_ context.Context, userID string, event string, payload any) {
	msg, ok := pushMessageFor(event, payload)
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := p.deliver(ctx, userID, msg); err != nil {
			log.Warn("push notification failed", "user", userID, "event", event, "err", err)
		}
	}()
}

func (p *PushNotifier) deliver(ctx context.Context, userID string, msg PushMessage) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	sub, err := p.subs.GetByUser(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := p.send(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		Subscriber:      p.subscriber,
		VAPIDPublicKey:  p.publicKey,
		VAPIDPrivateKey: p.privateKey,
		TTL:             30,
	})
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
			log.Info("push subscription expired, deleting", "user", userID)
			if delErr := p.subs.DeleteByUser(ctx, uid); delErr != nil && !errors.Is(delErr, repositories.ErrNotFound) {
				log.Warn("failed to delete expired subscription", "user", userID, "err", delErr)
			}
			return nil
		}
	}
	if err != nil {
		return err
	}
	log.Debug("push notification sent", "user", userID)
	return nil
}

func pushMessageFor(event string, payload any) (PushMessage, bool) {
	switch event {
	case services.EventNewMatch:
		ev, _ := payload.(services.NewMatchEvent)
		return PushMessage{
			Title: "It's a match!",
			Body:  "You have a new match. Say hello!",
			Data:  map[string]any{"type": event, "matchId": ev.MatchID, "url": "/matches"},
		}, true
	case services.EventNewMessage:
		ev, ok := payload.(services.NewMessageEvent)
		if !ok {
			return PushMessage{}, false
		}
		body := ev.Message.Content
		switch ev.Message.MessageType {
		case models.MessageImage:
			body = "Sent you a photo"
		case models.MessageLocation:
			body = "Shared a location"
		}
		if r := []rune(body); len(r) > 100 {
			body = string(r[:100]) + "..."
		}
		name := ev.Message.Sender.Name
		if name == "" {
			name = "Someone"
		}
		return PushMessage{
			Title: name,
			Body:  body,
			Data:  map[string]any{"type": event, "matchId": ev.MatchID, "url": "/chat/" + ev.MatchID},
		}, true
	}
	return PushMessage{}, false
}
