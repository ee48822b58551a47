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

type MaterialStore struct {
	DB *mongo.Database
}

func (s *MaterialStore) collection() *mongo.Collection {
	return s.DB.Collection("materials")
}

func (s *MaterialStore) Insert(ctx context.Context, m *models.Material) error {
	result, err := s.collection().InsertOne(ctx, m)
	if err != nil {
		return pickup.StoreError{Err: err}
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		m.ID = oid
	}
	return nil
}

func (s *MaterialStore) GetByMaterialID(ctx context.Context, materialID string) (*models.Material, error) {
	var m models.Material
	err := s.collection().FindOne(ctx, bson.M{"materialID": materialID}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pickup.NotFoundError{Resource: "material", ID: materialID}
		}
		return nil, pickup.StoreError{Err: err}
	}
	return &m, nil
}

func (s *MaterialStore) Update(ctx context.Context, materialID string, set bson.M) error {
	set["updatedAt"] = time.Now()
	result, err := s.collection().UpdateOne(ctx, bson.M{"materialID": materialID}, bson.M{"$set": set})
	if err != nil {
		return pickup.StoreError{Err: err}
	}
	if result.MatchedCount == 0 {
		return pickup.NotFoundError{Resource: "material", ID: materialID}
	}
	return nil
}

// Retire marks a material unusable for new completions without deleting
// existing references to it.
func (s *MaterialStore) Retire(ctx context.Context, materialID string) error {
	return s.Update(ctx, materialID, bson.M{"status": "RETIRED"})
}

func (s *MaterialStore) FindAll(ctx context.Context, status string) ([]models.Material, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := s.collection().Find(ctx, filter)
	if err != nil {
		return nil, pickup.StoreError{Err: err}
	}
	defer cursor.Close(ctx)

	var materials []models.Material
	if err = cursor.All(ctx, &materials); err != nil {
		return nil, pickup.StoreError{Err: err}
	}
	if materials == nil {
		materials = []models.Material{}
	}
	return materials, nil
}
