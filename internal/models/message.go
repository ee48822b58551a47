package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message là một tin nhắn trong cuộc hội thoại gắn với một post.
// System notices written by the pickup lifecycle have System=true and an
// empty SenderID; the log is append-only.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID      string             `bson:"postID" json:"postID"`
	SenderID    string             `bson:"senderID,omitempty" json:"senderID,omitempty"`
	RecipientID string             `bson:"recipientID" json:"recipientID"`
	Text        string             `bson:"text" json:"text"`
	System      bool               `bson:"system" json:"system"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
