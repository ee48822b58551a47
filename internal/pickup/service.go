package pickup

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"greencycle-api-server/internal/models"

	"github.com/google/uuid"
)

// PickupStore is the durable record store for pickups. Replace must be a
// compare-and-swap on {pickupID, expectVersion} and return
// ErrVersionConflict when the document moved underneath the caller.
type PickupStore interface {
	Insert(ctx context.Context, p *models.Pickup) error
	GetByPickupID(ctx context.Context, pickupID string) (*models.Pickup, error)
	Replace(ctx context.Context, p *models.Pickup, expectVersion int64) error
	FindByParty(ctx context.Context, userID, status string) ([]models.Pickup, error)
}

// PostStore is the slice of the post collaborator the lifecycle needs.
type PostStore interface {
	GetByPostID(ctx context.Context, postID string) (*models.Post, error)
	SetStatus(ctx context.Context, postID, status string) error
}

// MaterialCatalog validates material references on completion lines.
type MaterialCatalog interface {
	GetByMaterialID(ctx context.Context, materialID string) (*models.Material, error)
}

// ConversationLog receives system notices. Append failures are logged by
// the service, never propagated: the notice is best-effort.
type ConversationLog interface {
	AppendSystemMessage(ctx context.Context, postID, recipientID, text string) error
}

// Publisher pushes the full updated pickup to every live subscriber of
// that pickupID.
type Publisher interface {
	Publish(pickupID string, p *models.Pickup)
}

// How many times a versioned write is re-evaluated before giving up.
// Conflicts only occur against writers in another process; in-process
// requests are serialized by the per-pickup mutex.
const maxWriteAttempts = 3

// Service applies authorized transitions to pickups. All mutations of a
// given pickupID are serialized: a per-pickup mutex in-process, plus the
// store's compare-and-swap as a cross-process guard. Side effects run in
// persist -> notify -> publish order; once the write commits, a failed
// notice never rolls it back.
type Service struct {
	Pickups   PickupStore
	Posts     PostStore
	Materials MaterialCatalog
	Log       ConversationLog
	Publisher Publisher

	// Minimum lead time before the scheduled pickup for cancelling a
	// CONFIRMED pickup.
	CancelLeadWindow time.Duration

	// Now is a test seam; nil means time.Now.
	Now func() time.Time

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// ProposalDetails carries the negotiable fields of a proposal.
type ProposalDetails struct {
	PickupDate          string         `json:"pickupDate" binding:"required"`
	PickupTime          string         `json:"pickupTime" binding:"required"`
	PickupLocation      models.Address `json:"pickupLocation" binding:"required"`
	ContactPerson       string         `json:"contactPerson" binding:"required"`
	ContactNumber       string         `json:"contactNumber" binding:"required"`
	SpecialInstructions string         `json:"specialInstructions"`
}

// CompletionLineInput is one material line as submitted by the giver.
// Totals are never accepted from the caller.
type CompletionLineInput struct {
	MaterialID string  `json:"materialID" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required"`
	Payment    float64 `json:"payment"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// lock returns the mutex serializing all mutations of one pickupID.
func (s *Service) lock(pickupID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	mu, ok := s.locks[pickupID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[pickupID] = mu
	}
	return mu
}

// Propose creates a pickup in PROPOSED against an active waste post.
func (s *Service) Propose(ctx context.Context, postID, collectorID string, details ProposalDetails) (*models.Pickup, error) {
	post, err := s.Posts.GetByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Type != models.PostTypeWaste {
		return nil, ValidationError{Field: "postID", Msg: "only waste posts accept pickups"}
	}
	if post.Status != models.PostStatusActive {
		return nil, WrongStateError{Current: post.Status, Requested: models.PickupStatusProposed}
	}
	if post.OwnerID == collectorID {
		return nil, ForbiddenError{Msg: "you cannot propose a pickup on your own post"}
	}
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Pickup{
		PickupID:            fmt.Sprintf("PKP-%s", strings.ToUpper(uuid.New().String()[:8])),
		PostID:              post.PostID,
		GiverID:             post.OwnerID,
		CollectorID:         collectorID,
		Status:              models.PickupStatusProposed,
		PickupDate:          details.PickupDate,
		PickupTime:          details.PickupTime,
		PickupLocation:      details.PickupLocation,
		ContactPerson:       details.ContactPerson,
		ContactNumber:       details.ContactNumber,
		SpecialInstructions: details.SpecialInstructions,
		ProposedBy:          models.RoleCollector,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.Pickups.Insert(ctx, p); err != nil {
		return nil, err
	}

	// The post is claimed once a pickup exists for it. The pickup record
	// is authoritative either way.
	if err := s.Posts.SetStatus(ctx, post.PostID, models.PostStatusClaimed); err != nil {
		log.Printf("CRITICAL: pickup %s created but failed to mark post %s as claimed: %v", p.PickupID, post.PostID, err)
	}

	s.notify(ctx, p, p.GiverID, fmt.Sprintf("A collector proposed a pickup for %s %s.", p.PickupDate, p.PickupTime))
	s.publish(p)
	return p, nil
}

// EditProposal updates the negotiable details while the pickup is still
// PROPOSED. Only the party that owns the current proposal may edit it;
// ownership does not change.
func (s *Service) EditProposal(ctx context.Context, pickupID, actorID string, details ProposalDetails) (*models.Pickup, error) {
	mu := s.lock(pickupID)
	mu.Lock()
	defer mu.Unlock()

	if err := validateDetails(details); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := s.Pickups.GetByPickupID(ctx, pickupID)
		if err != nil {
			return nil, err
		}
		if err := AuthorizeEdit(p, actorID); err != nil {
			return nil, err
		}

		p.PickupDate = details.PickupDate
		p.PickupTime = details.PickupTime
		p.PickupLocation = details.PickupLocation
		p.ContactPerson = details.ContactPerson
		p.ContactNumber = details.ContactNumber
		p.SpecialInstructions = details.SpecialInstructions
		p.UpdatedAt = s.now()

		if err := s.Pickups.Replace(ctx, p, p.Version); err != nil {
			if err == ErrVersionConflict {
				continue
			}
			return nil, err
		}
		p.Version++

		s.notify(ctx, p, s.otherParty(p, actorID), fmt.Sprintf("The pickup proposal was updated: %s %s.", p.PickupDate, p.PickupTime))
		s.publish(p)
		return p, nil
	}
	return nil, StoreError{Err: ErrVersionConflict}
}

// ApplyTransition moves the pickup to the requested status on behalf of
// the actor. Every request either commits a transition or returns a typed
// denial; nothing is silently ignored. Completion is not reachable here:
// it requires material lines and goes through Complete.
func (s *Service) ApplyTransition(ctx context.Context, pickupID, actorID, actorRole, requested string) (*models.Pickup, error) {
	if requested == models.PickupStatusCompleted {
		return nil, ValidationError{Field: "status", Msg: "completing a pickup requires material lines; use the completion endpoint"}
	}

	mu := s.lock(pickupID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := s.Pickups.GetByPickupID(ctx, pickupID)
		if err != nil {
			return nil, err
		}
		if err := Authorize(p, actorID, actorRole, requested, s.now(), s.CancelLeadWindow); err != nil {
			return nil, err
		}

		now := s.now()
		p.Status = requested
		stampTransition(p, requested, now)
		p.UpdatedAt = now

		if err := s.Pickups.Replace(ctx, p, p.Version); err != nil {
			if err == ErrVersionConflict {
				// Someone else committed first; re-evaluate against the
				// fresh state so no transition is approved against a
				// status that is no longer current.
				continue
			}
			return nil, err
		}
		p.Version++

		s.notify(ctx, p, s.otherParty(p, actorID), statusNotice(p, actorID))
		s.publish(p)
		return p, nil
	}
	return nil, StoreError{Err: ErrVersionConflict}
}

// Complete records the material breakdown, moves the pickup to COMPLETED
// and propagates the status to the originating post. Only the giver may
// complete, and only from IN_TRANSIT or PICKING_ONGOING.
func (s *Service) Complete(ctx context.Context, pickupID, actorID string, lines []CompletionLineInput, paymentMethod, notes string) (*models.Pickup, error) {
	if len(lines) == 0 {
		return nil, ValidationError{Field: "lines", Msg: "at least one material line is required"}
	}
	if paymentMethod == "" {
		return nil, ValidationError{Field: "paymentMethod", Msg: "payment method is required"}
	}

	mu := s.lock(pickupID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := s.Pickups.GetByPickupID(ctx, pickupID)
		if err != nil {
			return nil, err
		}
		party := p.PartyOf(actorID)
		if err := Authorize(p, actorID, party, models.PickupStatusCompleted, s.now(), s.CancelLeadWindow); err != nil {
			return nil, err
		}

		record, err := s.buildCompletionRecord(ctx, lines, paymentMethod, notes)
		if err != nil {
			return nil, err
		}

		now := s.now()
		record.CompletedAt = now
		p.Status = models.PickupStatusCompleted
		p.CompletedAt = &now
		p.Completion = record
		p.UpdatedAt = now

		if err := s.Pickups.Replace(ctx, p, p.Version); err != nil {
			if err == ErrVersionConflict {
				continue
			}
			return nil, err
		}
		p.Version++

		// Post-status propagation is best-effort: the completed pickup
		// stands even if the post update fails.
		if err := s.Posts.SetStatus(ctx, p.PostID, models.PostStatusCompleted); err != nil {
			log.Printf("CRITICAL: pickup %s completed but failed to update post %s status: %v", p.PickupID, p.PostID, err)
		}

		s.notify(ctx, p, p.CollectorID, fmt.Sprintf("Pickup %s has been completed. Total: %.2f kg, %.2f paid.", p.PickupID, record.TotalAmount, record.TotalPayment))
		s.publish(p)
		return p, nil
	}
	return nil, StoreError{Err: ErrVersionConflict}
}

// AddProofPhoto attaches an uploaded proof photo to an in-progress pickup.
// Only the collector on the pickup may upload, and only while the pickup
// is IN_TRANSIT or PICKING_ONGOING.
func (s *Service) AddProofPhoto(ctx context.Context, pickupID, actorID string, photo models.MediaPointer) (*models.Pickup, error) {
	mu := s.lock(pickupID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := s.Pickups.GetByPickupID(ctx, pickupID)
		if err != nil {
			return nil, err
		}
		if p.PartyOf(actorID) != models.RoleCollector {
			return nil, ForbiddenError{Msg: "only the collector may upload proof photos"}
		}
		if models.PickupStatusTerminal(p.Status) {
			return nil, TerminalError{Status: p.Status}
		}
		if p.Status != models.PickupStatusInTransit && p.Status != models.PickupStatusPickingOngoing {
			return nil, WrongStateError{Current: p.Status}
		}

		p.ProofPhotos = append(p.ProofPhotos, photo)
		p.UpdatedAt = s.now()

		if err := s.Pickups.Replace(ctx, p, p.Version); err != nil {
			if err == ErrVersionConflict {
				continue
			}
			return nil, err
		}
		p.Version++

		s.publish(p)
		return p, nil
	}
	return nil, StoreError{Err: ErrVersionConflict}
}

func (s *Service) buildCompletionRecord(ctx context.Context, lines []CompletionLineInput, paymentMethod, notes string) (*models.CompletionRecord, error) {
	record := &models.CompletionRecord{
		PaymentMethod: paymentMethod,
		Notes:         notes,
	}
	for i, line := range lines {
		if line.MaterialID == "" {
			return nil, ValidationError{Field: fmt.Sprintf("lines[%d].materialID", i), Msg: "material is required"}
		}
		if line.Quantity <= 0 {
			return nil, ValidationError{Field: fmt.Sprintf("lines[%d].quantity", i), Msg: "quantity must be positive"}
		}
		if line.Payment < 0 {
			return nil, ValidationError{Field: fmt.Sprintf("lines[%d].payment", i), Msg: "payment cannot be negative"}
		}
		mat, err := s.Materials.GetByMaterialID(ctx, line.MaterialID)
		if err != nil {
			return nil, err
		}
		if mat.Status == "RETIRED" {
			return nil, ValidationError{Field: fmt.Sprintf("lines[%d].materialID", i), Msg: mat.MaterialID + " has been retired from the catalog"}
		}
		record.Lines = append(record.Lines, models.CompletionLine{
			MaterialID:   mat.MaterialID,
			MaterialName: mat.DisplayName,
			Quantity:     line.Quantity,
			Payment:      line.Payment,
		})
		record.TotalAmount += line.Quantity
		record.TotalPayment += line.Payment
	}
	return record, nil
}

// notify appends a system notice to the conversation on the pickup's post.
// Fire-and-forget: a failed notice is logged and the transition stands.
func (s *Service) notify(ctx context.Context, p *models.Pickup, recipientID, text string) {
	if s.Log == nil {
		return
	}
	if err := s.Log.AppendSystemMessage(ctx, p.PostID, recipientID, text); err != nil {
		log.Printf("Failed to append system notice for pickup %s: %v", p.PickupID, err)
	}
}

func (s *Service) publish(p *models.Pickup) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(p.PickupID, p)
}

func (s *Service) otherParty(p *models.Pickup, actorID string) string {
	if actorID == p.GiverID {
		return p.CollectorID
	}
	return p.GiverID
}

// stampTransition sets the timestamp field matching the status being
// entered. Exactly one terminal timestamp can ever be set because
// Authorize rejects all transitions out of a terminal status.
func stampTransition(p *models.Pickup, status string, now time.Time) {
	switch status {
	case models.PickupStatusConfirmed:
		p.ConfirmedAt = &now
	case models.PickupStatusInTransit:
		p.InTransitAt = &now
	case models.PickupStatusPickingOngoing:
		p.PickingStartedAt = &now
	case models.PickupStatusCompleted:
		p.CompletedAt = &now
	case models.PickupStatusCancelled:
		p.CancelledAt = &now
	}
}

func statusNotice(p *models.Pickup, actorID string) string {
	switch p.Status {
	case models.PickupStatusConfirmed:
		return fmt.Sprintf("Pickup %s has been confirmed for %s %s.", p.PickupID, p.PickupDate, p.PickupTime)
	case models.PickupStatusInTransit:
		return fmt.Sprintf("The collector is on the way for pickup %s.", p.PickupID)
	case models.PickupStatusPickingOngoing:
		return fmt.Sprintf("Picking has started for pickup %s.", p.PickupID)
	case models.PickupStatusCancelled:
		return fmt.Sprintf("Pickup %s has been cancelled by the %s.", p.PickupID, p.PartyOf(actorID))
	}
	return fmt.Sprintf("Pickup %s is now %s.", p.PickupID, p.Status)
}

func validateDetails(details ProposalDetails) error {
	if _, err := time.Parse("2006-01-02", details.PickupDate); err != nil {
		return ValidationError{Field: "pickupDate", Msg: "expected YYYY-MM-DD"}
	}
	if _, err := time.Parse("15:04", details.PickupTime); err != nil {
		return ValidationError{Field: "pickupTime", Msg: "expected HH:MM"}
	}
	if details.PickupLocation.FullText == "" {
		return ValidationError{Field: "pickupLocation", Msg: "address is required"}
	}
	if details.ContactPerson == "" || details.ContactNumber == "" {
		return ValidationError{Field: "contactPerson", Msg: "contact person and number are required"}
	}
	return nil
}
