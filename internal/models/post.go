package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post types. Only WASTE posts accept pickups.
const (
	PostTypeWaste      = "WASTE"
	PostTypeInitiative = "INITIATIVE"
	PostTypeForum      = "FORUM"
)

// Post statuses. A waste post is claimed when a pickup is proposed against
// it and completed when that pickup completes.
const (
	PostStatusActive    = "ACTIVE"
	PostStatusClaimed   = "CLAIMED"
	PostStatusCompleted = "COMPLETED"
)

type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID      string             `bson:"postID" json:"postID"` // e.g. "POST-1A2B3C4D"
	Type        string             `bson:"type" json:"type"`
	OwnerID     string             `bson:"ownerID" json:"ownerID"` // giver's userID
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	MaterialIDs []string           `bson:"materialIDs,omitempty" json:"materialIDs,omitempty"`
	Address     Address            `bson:"address,omitempty" json:"address,omitempty"`
	Photos      []MediaPointer     `bson:"photos,omitempty" json:"photos,omitempty"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
