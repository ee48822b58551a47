package pickup

import (
	"testing"
	"time"

	"greencycle-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGiverID     = "USR-GIVER001"
	testCollectorID = "USR-COLL0001"
	testWindow      = 5 * time.Hour
)

// testNow is far from the scheduled pickup so lead-time checks pass unless
// a test moves the clock.
var testNow = time.Date(2025, 2, 25, 9, 0, 0, 0, time.UTC)

func newPickup(status string) *models.Pickup {
	return &models.Pickup{
		PickupID:      "PKP-TEST0001",
		PostID:        "POST-TEST001",
		GiverID:       testGiverID,
		CollectorID:   testCollectorID,
		Status:        status,
		PickupDate:    "2025-03-01",
		PickupTime:    "10:00",
		ContactPerson: "A. Nguyen",
		ContactNumber: "0900000000",
		ProposedBy:    models.RoleCollector,
	}
}

// actorFor returns the actor allowed to request the target status, so the
// table-completeness assertions are not masked by the role gate.
func actorFor(requested string) (string, string) {
	if role, ok := transitionRole[requested]; ok && role == models.RoleCollector {
		return testCollectorID, models.RoleCollector
	}
	return testGiverID, models.RoleGiver
}

func TestTransitionTableCompleteness(t *testing.T) {
	statuses := []string{
		models.PickupStatusProposed,
		models.PickupStatusConfirmed,
		models.PickupStatusInTransit,
		models.PickupStatusPickingOngoing,
		models.PickupStatusCompleted,
		models.PickupStatusCancelled,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			p := newPickup(from)
			actorID, role := actorFor(to)
			err := Authorize(p, actorID, role, to, testNow, testWindow)

			switch {
			case models.PickupStatusTerminal(from):
				assert.IsType(t, TerminalError{}, err, "%s -> %s", from, to)
			case transitionAllowed(from, to):
				assert.NoError(t, err, "%s -> %s", from, to)
			default:
				assert.IsType(t, WrongStateError{}, err, "%s -> %s", from, to)
			}
		}
	}
}

func TestCollectorCannotConfirmRegardlessOfState(t *testing.T) {
	statuses := []string{
		models.PickupStatusProposed,
		models.PickupStatusConfirmed,
		models.PickupStatusInTransit,
		models.PickupStatusPickingOngoing,
		models.PickupStatusCompleted,
		models.PickupStatusCancelled,
	}
	for _, from := range statuses {
		p := newPickup(from)
		err := Authorize(p, testCollectorID, models.RoleCollector, models.PickupStatusConfirmed, testNow, testWindow)
		assert.IsType(t, ForbiddenError{}, err, "from %s", from)
	}
}

func TestProposerCannotConfirmOwnProposal(t *testing.T) {
	p := newPickup(models.PickupStatusProposed)
	p.ProposedBy = models.RoleGiver

	err := Authorize(p, testGiverID, models.RoleGiver, models.PickupStatusConfirmed, testNow, testWindow)
	assert.IsType(t, ForbiddenError{}, err)

	// With the collector's proposal in place, the giver may confirm.
	p.ProposedBy = models.RoleCollector
	require.NoError(t, Authorize(p, testGiverID, models.RoleGiver, models.PickupStatusConfirmed, testNow, testWindow))
}

func TestStrangerIsForbidden(t *testing.T) {
	p := newPickup(models.PickupStatusProposed)
	err := Authorize(p, "USR-STRANGER", models.RoleCollector, models.PickupStatusCancelled, testNow, testWindow)
	assert.IsType(t, ForbiddenError{}, err)
}

func TestRoleMismatchIsForbidden(t *testing.T) {
	// Correct ID but a role that does not match the party on the pickup.
	p := newPickup(models.PickupStatusProposed)
	err := Authorize(p, testGiverID, models.RoleCollector, models.PickupStatusCancelled, testNow, testWindow)
	assert.IsType(t, ForbiddenError{}, err)
}

func TestCancelLeadTimeWindow(t *testing.T) {
	p := newPickup(models.PickupStatusConfirmed)

	// Scheduled 2 hours from now: inside the 5 hour window.
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	err := Authorize(p, testGiverID, models.RoleGiver, models.PickupStatusCancelled, now, testWindow)
	assert.IsType(t, LeadTimeError{}, err)

	// Scheduled 10 hours from now: allowed, for either party.
	now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, Authorize(p, testGiverID, models.RoleGiver, models.PickupStatusCancelled, now, testWindow))
	assert.NoError(t, Authorize(p, testCollectorID, models.RoleCollector, models.PickupStatusCancelled, now, testWindow))
}

func TestProposedCancelHasNoLeadTimeCheck(t *testing.T) {
	// A proposal may be withdrawn at any time, even minutes before.
	p := newPickup(models.PickupStatusProposed)
	now := time.Date(2025, 3, 1, 9, 55, 0, 0, time.UTC)
	assert.NoError(t, Authorize(p, testCollectorID, models.RoleCollector, models.PickupStatusCancelled, now, testWindow))
}

func TestUnknownStatusRejected(t *testing.T) {
	p := newPickup(models.PickupStatusProposed)
	err := Authorize(p, testGiverID, models.RoleGiver, "SHIPPED", testNow, testWindow)
	assert.IsType(t, ValidationError{}, err)
}

func TestReturnToProposedIsWrongState(t *testing.T) {
	// PROPOSED is a real status, not a malformed request: asking for it is
	// an off-table transition, not a validation failure.
	for _, from := range []string{
		models.PickupStatusConfirmed,
		models.PickupStatusInTransit,
		models.PickupStatusPickingOngoing,
	} {
		p := newPickup(from)
		err := Authorize(p, testGiverID, models.RoleGiver, models.PickupStatusProposed, testNow, testWindow)
		assert.IsType(t, WrongStateError{}, err, "from %s", from)
	}
}

func TestAuthorizeEdit(t *testing.T) {
	p := newPickup(models.PickupStatusProposed)

	// Only the proposing party may edit.
	require.NoError(t, AuthorizeEdit(p, testCollectorID))
	assert.IsType(t, ForbiddenError{}, AuthorizeEdit(p, testGiverID))
	assert.IsType(t, ForbiddenError{}, AuthorizeEdit(p, "USR-STRANGER"))

	// Editing stops once the proposal is accepted.
	p.Status = models.PickupStatusConfirmed
	assert.IsType(t, WrongStateError{}, AuthorizeEdit(p, testCollectorID))

	p.Status = models.PickupStatusCancelled
	assert.IsType(t, TerminalError{}, AuthorizeEdit(p, testCollectorID))
}
