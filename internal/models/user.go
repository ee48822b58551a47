package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles. The core trusts the role resolved at login; there is no
// duck-typing on user documents anywhere below the auth middleware.
const (
	RoleGiver     = "giver"
	RoleCollector = "collector"
	RoleAdmin     = "admin"
)

// User struct matches the document in MongoDB.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   string             `bson:"userID" json:"userID"` // e.g. "USR-1A2B3C4D"
	Email    string             `bson:"email" json:"email"`
	Name     string             `bson:"name" json:"name"`
	Password string             `bson:"password" json:"-"`
	Role     string             `bson:"role" json:"role"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address  Address            `bson:"address,omitempty" json:"address,omitempty"`
	Status   string             `bson:"status" json:"status"` // active, suspended
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}
