package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageLocation MessageType = "location"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageLocation:
		return true
	}
	return false
}

const MaxMessageLength = 1000

type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	MatchID     primitive.ObjectID `bson:"match" json:"match"`
	SenderID    primitive.ObjectID `bson:"sender" json:"sender"`
	RecipientID primitive.ObjectID `bson:"recipient" json:"recipient"`
	Content     string             `bson:"content" json:"content"`
	MessageType MessageType        `bson:"messageType" json:"messageType"`
	MediaURL    string             `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	IsRead      bool               `bson:"isRead" json:"isRead"`
	ReadAt      *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
	IsDeleted   bool               `bson:"isDeleted" json:"-"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
