package store

import (
	"context"
	"time"

	"greencycle-api-server/internal/models"
	"greencycle-api-server/internal/pickup"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageStore is the append-only conversation log. The pickup lifecycle
// only ever appends system notices; reads are for the conversation view.
type MessageStore struct {
	DB *mongo.Database
}

func (s *MessageStore) collection() *mongo.Collection {
	return s.DB.Collection("messages")
}

func (s *MessageStore) AppendSystemMessage(ctx context.Context, postID, recipientID, text string) error {
	msg := models.Message{
		PostID:      postID,
		RecipientID: recipientID,
		Text:        text,
		System:      true,
		CreatedAt:   time.Now(),
	}
	if _, err := s.collection().InsertOne(ctx, msg); err != nil {
		return pickup.StoreError{Err: err}
	}
	return nil
}

func (s *MessageStore) ListByPostID(ctx context.Context, postID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := s.collection().Find(ctx, bson.M{"postID": postID}, opts)
	if err != nil {
		return nil, pickup.StoreError{Err: err}
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, pickup.StoreError{Err: err}
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}
