package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pickup statuses. COMPLETED and CANCELLED are terminal; a terminal pickup
// is never deleted, it remains as an audit record.
const (
	PickupStatusProposed       = "PROPOSED"
	PickupStatusConfirmed      = "CONFIRMED"
	PickupStatusInTransit      = "IN_TRANSIT"
	PickupStatusPickingOngoing = "PICKING_ONGOING"
	PickupStatusCompleted      = "COMPLETED"
	PickupStatusCancelled      = "CANCELLED"
)

// PickupStatusValid reports whether s is one of the defined statuses.
func PickupStatusValid(s string) bool {
	switch s {
	case PickupStatusProposed, PickupStatusConfirmed, PickupStatusInTransit,
		PickupStatusPickingOngoing, PickupStatusCompleted, PickupStatusCancelled:
		return true
	}
	return false
}

// PickupStatusTerminal reports whether s permits no further transitions.
func PickupStatusTerminal(s string) bool {
	return s == PickupStatusCompleted || s == PickupStatusCancelled
}

// CompletionLine là một dòng vật liệu trong biên bản hoàn tất.
type CompletionLine struct {
	MaterialID   string  `bson:"materialID" json:"materialID"`
	MaterialName string  `bson:"materialName" json:"materialName"`
	Quantity     float64 `bson:"quantity" json:"quantity"` // kg
	Payment      float64 `bson:"payment" json:"payment"`
}

// CompletionRecord is embedded in a completed pickup. Totals are recomputed
// from the lines at write time, never taken from the caller.
type CompletionRecord struct {
	Lines         []CompletionLine `bson:"lines" json:"lines"`
	TotalAmount   float64          `bson:"totalAmount" json:"totalAmount"`
	TotalPayment  float64          `bson:"totalPayment" json:"totalPayment"`
	PaymentMethod string           `bson:"paymentMethod" json:"paymentMethod"`
	Notes         string           `bson:"notes,omitempty" json:"notes,omitempty"`
	CompletedAt   time.Time        `bson:"completedAt" json:"completedAt"`
}

// Pickup đại diện cho một lần hẹn thu gom giữa giver và collector cho một post.
// The version counter guards every mutation: writes are compare-and-swap on
// {pickupID, version} so concurrent transitions are never both applied
// against a stale status.
type Pickup struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PickupID    string             `bson:"pickupID" json:"pickupID"` // e.g. "PKP-1A2B3C4D"
	PostID      string             `bson:"postID" json:"postID"`
	GiverID     string             `bson:"giverID" json:"giverID"`
	CollectorID string             `bson:"collectorID" json:"collectorID"`
	Status      string             `bson:"status" json:"status"`

	PickupDate          string  `bson:"pickupDate" json:"pickupDate"` // "2006-01-02"
	PickupTime          string  `bson:"pickupTime" json:"pickupTime"` // "15:04"
	PickupLocation      Address `bson:"pickupLocation" json:"pickupLocation"`
	ContactPerson       string  `bson:"contactPerson" json:"contactPerson"`
	ContactNumber       string  `bson:"contactNumber" json:"contactNumber"`
	SpecialInstructions string  `bson:"specialInstructions,omitempty" json:"specialInstructions,omitempty"`
	ProposedBy          string  `bson:"proposedBy" json:"proposedBy"` // "giver" or "collector"

	ConfirmedAt      *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	InTransitAt      *time.Time `bson:"inTransitAt,omitempty" json:"inTransitAt,omitempty"`
	PickingStartedAt *time.Time `bson:"pickingStartedAt,omitempty" json:"pickingStartedAt,omitempty"`
	CompletedAt      *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt      *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	Completion  *CompletionRecord `bson:"completion,omitempty" json:"completion,omitempty"`
	ProofPhotos []MediaPointer    `bson:"proofPhotos,omitempty" json:"proofPhotos,omitempty"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PartyOf returns "giver" or "collector" for a party on the pickup, or ""
// if the user is not a party.
func (p *Pickup) PartyOf(userID string) string {
	switch userID {
	case p.GiverID:
		return RoleGiver
	case p.CollectorID:
		return RoleCollector
	}
	return ""
}

// ScheduledAt parses PickupDate + PickupTime in the given location.
func (p *Pickup) ScheduledAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", p.PickupDate+" "+p.PickupTime, loc)
}
