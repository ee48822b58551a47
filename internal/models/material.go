package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Material là một loại vật liệu tái chế trong danh mục.
type Material struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MaterialID        string             `bson:"materialID" json:"materialID"` // e.g. "MAT-PET"
	DisplayName       string             `bson:"displayName" json:"displayName"`
	AveragePricePerKg float64            `bson:"averagePricePerKg" json:"averagePricePerKg"`
	Status            string             `bson:"status" json:"status"` // ACTIVE, RETIRED
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
