// Package store wraps the MongoDB collections behind the interfaces the
// pickup lifecycle consumes.
package store

import (
	"context"

	"greencycle-api-server/internal/models"
	"greencycle-api-server/internal/pickup"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PickupStore is the single source of truth for pickup status and
// timestamps. Every write is guarded by the document version.
type PickupStore struct {
	DB *mongo.Database
}

func (s *PickupStore) collection() *mongo.Collection {
	return s.DB.Collection("pickups")
}

func (s *PickupStore) Insert(ctx context.Context, p *models.Pickup) error {
	result, err := s.collection().InsertOne(ctx, p)
	if err != nil {
		return pickup.StoreError{Err: err}
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (s *PickupStore) GetByPickupID(ctx context.Context, pickupID string) (*models.Pickup, error) {
	var p models.Pickup
	err := s.collection().FindOne(ctx, bson.M{"pickupID": pickupID}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pickup.NotFoundError{Resource: "pickup", ID: pickupID}
		}
		return nil, pickup.StoreError{Err: err}
	}
	return &p, nil
}

// Replace swaps the whole document, but only if nobody else has written it
// since it was read at expectVersion. The caller's copy keeps its version;
// the stored document gets expectVersion+1.
func (s *PickupStore) Replace(ctx context.Context, p *models.Pickup, expectVersion int64) error {
	doc := *p
	doc.Version = expectVersion + 1

	filter := bson.M{"pickupID": p.PickupID, "version": expectVersion}
	result, err := s.collection().ReplaceOne(ctx, filter, &doc)
	if err != nil {
		return pickup.StoreError{Err: err}
	}
	if result.MatchedCount == 0 {
		return pickup.ErrVersionConflict
	}
	return nil
}

// FindByParty returns pickups where the user is the giver or the
// collector, optionally filtered by status.
func (s *PickupStore) FindByParty(ctx context.Context, userID, status string) ([]models.Pickup, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"giverID": userID},
		bson.M{"collectorID": userID},
	}}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := s.collection().Find(ctx, filter)
	if err != nil {
		return nil, pickup.StoreError{Err: err}
	}
	defer cursor.Close(ctx)

	var pickups []models.Pickup
	if err = cursor.All(ctx, &pickups); err != nil {
		return nil, pickup.StoreError{Err: err}
	}
	if pickups == nil {
		pickups = []models.Pickup{}
	}
	return pickups, nil
}
