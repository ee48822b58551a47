package store

import (
	"context"
	"time"

	"greencycle-api-server/internal/models"
	"greencycle-api-server/internal/pickup"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type PostStore struct {
	DB *mongo.Database
}

func (s *PostStore) collection() *mongo.Collection {
	return s.DB.Collection("posts")
}

func (s *PostStore) Insert(ctx context.Context, p *models.Post) error {
	result, err := s.collection().InsertOne(ctx, p)
	if err != nil {
		return pickup.StoreError{Err: err}
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (s *PostStore) GetByPostID(ctx context.Context, postID string) (*models.Post, error) {
	var p models.Post
	err := s.collection().FindOne(ctx, bson.M{"postID": postID}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pickup.NotFoundError{Resource: "post", ID: postID}
		}
		return nil, pickup.StoreError{Err: err}
	}
	return &p, nil
}

func (s *PostStore) SetStatus(ctx context.Context, postID, status string) error {
	result, err := s.collection().UpdateOne(ctx,
		bson.M{"postID": postID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return pickup.StoreError{Err: err}
	}
	if result.MatchedCount == 0 {
		return pickup.NotFoundError{Resource: "post", ID: postID}
	}
	return nil
}

// Find lists posts, optionally filtered by status, type and owner.
func (s *PostStore) Find(ctx context.Context, status, postType, ownerID string) ([]models.Post, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if postType != "" {
		filter["type"] = postType
	}
	if ownerID != "" {
		filter["ownerID"] = ownerID
	}

	cursor, err := s.collection().Find(ctx, filter)
	if err != nil {
		return nil, pickup.StoreError{Err: err}
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, pickup.StoreError{Err: err}
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}
