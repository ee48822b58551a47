package pickup

import (
	"time"

	"greencycle-api-server/internal/models"
)

// Role required to request each target status. CANCELLED is absent because
// either party may cancel.
var transitionRole = map[string]string{
	models.PickupStatusConfirmed:      models.RoleGiver,
	models.PickupStatusInTransit:      models.RoleCollector,
	models.PickupStatusPickingOngoing: models.RoleCollector,
	models.PickupStatusCompleted:      models.RoleGiver,
}

// Lifecycle table: current status -> statuses reachable from it.
var transitionTable = map[string][]string{
	models.PickupStatusProposed: {
		models.PickupStatusConfirmed,
		models.PickupStatusCancelled,
	},
	models.PickupStatusConfirmed: {
		models.PickupStatusInTransit,
		models.PickupStatusCancelled,
	},
	models.PickupStatusInTransit: {
		models.PickupStatusPickingOngoing,
		models.PickupStatusCompleted,
		models.PickupStatusCancelled,
	},
	models.PickupStatusPickingOngoing: {
		models.PickupStatusCompleted,
		models.PickupStatusCancelled,
	},
}

// Authorize decides whether actorID may move the pickup to the requested
// status at time now. It returns nil to allow, or a typed denial error.
// It is a pure decision function: it never mutates the pickup and performs
// no I/O. cancelWindow is the minimum lead time that must remain before
// the scheduled pickup when cancelling a CONFIRMED pickup.
func Authorize(p *models.Pickup, actorID, actorRole, requested string, now time.Time, cancelWindow time.Duration) error {
	if !models.PickupStatusValid(requested) {
		return ValidationError{Field: "status", Msg: "unknown status " + requested}
	}

	party := p.PartyOf(actorID)
	if party == "" || party != actorRole {
		return ForbiddenError{Msg: "you are not a party to this pickup"}
	}

	// Role gate on the requested status comes before any state check: a
	// collector asking to confirm is forbidden no matter what state the
	// pickup is in.
	if need, ok := transitionRole[requested]; ok && party != need {
		return ForbiddenError{Msg: "only the " + need + " may move this pickup to " + requested}
	}

	if models.PickupStatusTerminal(p.Status) {
		return TerminalError{Status: p.Status}
	}

	if !transitionAllowed(p.Status, requested) {
		return WrongStateError{Current: p.Status, Requested: requested}
	}

	// Per-transition preconditions.
	switch {
	case p.Status == models.PickupStatusProposed && requested == models.PickupStatusConfirmed:
		if p.ProposedBy == models.RoleGiver {
			return ForbiddenError{Msg: "the current proposal is yours; the collector must confirm or counter it"}
		}
	case p.Status == models.PickupStatusConfirmed && requested == models.PickupStatusCancelled:
		scheduled, err := p.ScheduledAt(now.Location())
		if err != nil {
			return ValidationError{Field: "pickupDate", Msg: "unparseable pickup schedule"}
		}
		if scheduled.Sub(now) <= cancelWindow {
			return LeadTimeError{Window: cancelWindow}
		}
	}

	return nil
}

// AuthorizeEdit decides whether actorID may edit the proposal details.
// Editing is allowed only while the pickup is PROPOSED and only for the
// party that owns the current proposal.
func AuthorizeEdit(p *models.Pickup, actorID string) error {
	party := p.PartyOf(actorID)
	if party == "" {
		return ForbiddenError{Msg: "you are not a party to this pickup"}
	}
	if models.PickupStatusTerminal(p.Status) {
		return TerminalError{Status: p.Status}
	}
	if p.Status != models.PickupStatusProposed {
		return WrongStateError{Current: p.Status}
	}
	if party != p.ProposedBy {
		return ForbiddenError{Msg: "only the party that made the proposal may edit it"}
	}
	return nil
}

func transitionAllowed(from, to string) bool {
	for _, t := range transitionTable[from] {
		if t == to {
			return true
		}
	}
	return false
}
