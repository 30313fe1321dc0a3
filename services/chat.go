package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/apperr"
	"heartmatch/models"
	"heartmatch/repositories"
)

const (
	DefaultMessagePageSize = 50
	MaxMessagePageSize     = 100
)

type SendInput struct {
	MatchID     string             `json:"matchId"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"messageType"`
	MediaURL    string             `json:"mediaUrl"`
}

type MessageEventBody struct {
	ID          primitive.ObjectID   `json:"_id"`
	Content     string               `json:"content"`
	MessageType models.MessageType   `json:"messageType"`
	MediaURL    string               `json:"mediaUrl,omitempty"`
	Sender      models.SenderSummary `json:"sender"`
	CreatedAt   time.Time            `json:"createdAt"`
}

type NewMessageEvent struct {
	MatchID string           `json:"matchId"`
	Message MessageEventBody `json:"message"`
}

// ChatService stores and reads the messages of active matches.
type ChatService struct {
	users    repositories.UserRepository
	matches  repositories.MatchRepository
	messages repositories.MessageRepository
	notifier Notifier
	now      func() time.Time
}

func NewChatService(store *repositories.Store, notifier Notifier) *ChatService {
	return &ChatService{
		users:    store.Users,
		matches:  store.Matches,
		messages: store.Messages,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *ChatService) Send(ctx context.Context, senderID string, in SendInput) (*models.Message, error) {
	if strings.TrimSpace(in.MatchID) == "" {
		return nil, apperr.Validation("matchId is required")
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	if in.MessageType == "" {
		in.MessageType = models.MessageText
	}
	if !in.MessageType.Valid() {
		return nil, apperr.Validation("messageType must be one of [text image location]")
	}

	me, match, err := loadActiveMatch(ctx, s.matches, senderID, in.MatchID)
	if err != nil {
		return nil, err
	}
	recipient, err := match.Users.OtherParticipant(me)
	if err != nil {
		return nil, apperr.NotFound("Match not found")
	}
	sender, err := s.users.GetByID(ctx, me)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}

	now := s.now()
	msg := &models.Message{
		ID:          primitive.NewObjectID(),
		MatchID:     match.ID,
		SenderID:    me,
		RecipientID: recipient,
		Content:     in.Content,
		MessageType: in.MessageType,
		MediaURL:    in.MediaURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperr.Internal("Failed to save message", err)
	}
	if err := s.matches.RecordMessage(ctx, match.ID, recipient, now); err != nil {
		// the message is stored; a stale lastMessageAt only affects ordering
		log.Warn("failed to update match after message", "match", in.MatchID, "err", err)
	}

	s.notifier.Notify(ctx, recipient.Hex(), EventNewMessage, NewMessageEvent{
		MatchID: match.ID.Hex(),
		Message: MessageEventBody{
			ID:          msg.ID,
			Content:     msg.Content,
			MessageType: msg.MessageType,
			MediaURL:    msg.MediaURL,
			Sender:      sender.SenderSummary(),
			CreatedAt:   msg.CreatedAt,
		},
	})
	log.Debug("message sent", "match", in.MatchID, "sender", senderID)
	return msg, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return apperr.Validation("content must have at most 1000 characters")
	}
	return nil
}

// Messages returns one page of the conversation in chronological order. Page 1
// holds the newest messages. Unread messages from the counterpart on the page
// are marked read and the requester's unread counter is reset.
func (s *ChatService) Messages(ctx context.Context, requesterID, matchID string, page, limit int) ([]models.Message, error) {
	me, match, err := loadActiveMatch(ctx, s.matches, requesterID, matchID)
	if err != nil {
		return nil, err
	}
	page, limit = clampPage(page, limit)

	msgs, err := s.messages.ListByMatch(ctx, match.ID, (page-1)*limit, limit)
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}

	now := s.now()
	var unread []primitive.ObjectID
	for i := range msgs {
		if msgs[i].RecipientID == me && !msgs[i].IsRead {
			unread = append(unread, msgs[i].ID)
			readAt := now
			msgs[i].IsRead = true
			msgs[i].ReadAt = &readAt
		}
	}
	if len(unread) > 0 {
		if _, err := s.messages.MarkRead(ctx, match.ID, me, now, unread...); err != nil {
			return nil, apperr.Internal("Server error", err)
		}
	}
	if err := s.matches.ResetUnread(ctx, match.ID, me); err != nil {
		log.Warn("failed to reset unread counter", "match", matchID, "err", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkRead marks every unread message from the counterpart as read.
func (s *ChatService) MarkRead(ctx context.Context, requesterID, matchID string) (int64, error) {
	me, match, err := loadActiveMatch(ctx, s.matches, requesterID, matchID)
	if err != nil {
		return 0, err
	}
	n, err := s.messages.MarkRead(ctx, match.ID, me, s.now())
	if err != nil {
		return 0, apperr.Internal("Server error", err)
	}
	if err := s.matches.ResetUnread(ctx, match.ID, me); err != nil {
		log.Warn("failed to reset unread counter", "match", matchID, "err", err)
	}
	return n, nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultMessagePageSize
	case limit > MaxMessagePageSize:
		limit = MaxMessagePageSize
	}
	return page, limit
}
