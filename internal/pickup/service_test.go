package pickup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"greencycle-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- In-memory fakes ---

type memPickupStore struct {
	mu      sync.Mutex
	pickups map[string]models.Pickup
}

func newMemPickupStore() *memPickupStore {
	return &memPickupStore{pickups: make(map[string]models.Pickup)}
}

func (s *memPickupStore) Insert(_ context.Context, p *models.Pickup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pickups[p.PickupID] = *p
	return nil
}

func (s *memPickupStore) GetByPickupID(_ context.Context, pickupID string) (*models.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pickups[pickupID]
	if !ok {
		return nil, NotFoundError{Resource: "pickup", ID: pickupID}
	}
	copy := p
	return &copy, nil
}

func (s *memPickupStore) Replace(_ context.Context, p *models.Pickup, expectVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.pickups[p.PickupID]
	if !ok {
		return NotFoundError{Resource: "pickup", ID: p.PickupID}
	}
	if current.Version != expectVersion {
		return ErrVersionConflict
	}
	stored := *p
	stored.Version = expectVersion + 1
	s.pickups[p.PickupID] = stored
	return nil
}

func (s *memPickupStore) FindByParty(_ context.Context, userID, status string) ([]models.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.Pickup{}
	for _, p := range s.pickups {
		if p.GiverID != userID && p.CollectorID != userID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

type memPostStore struct {
	mu           sync.Mutex
	posts        map[string]models.Post
	setStatusErr error
}

func newMemPostStore(posts ...models.Post) *memPostStore {
	s := &memPostStore{posts: make(map[string]models.Post)}
	for _, p := range posts {
		s.posts[p.PostID] = p
	}
	return s
}

func (s *memPostStore) GetByPostID(_ context.Context, postID string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return nil, NotFoundError{Resource: "post", ID: postID}
	}
	copy := p
	return &copy, nil
}

func (s *memPostStore) SetStatus(_ context.Context, postID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setStatusErr != nil {
		return s.setStatusErr
	}
	p, ok := s.posts[postID]
	if !ok {
		return NotFoundError{Resource: "post", ID: postID}
	}
	p.Status = status
	s.posts[postID] = p
	return nil
}

func (s *memPostStore) status(postID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts[postID].Status
}

type memCatalog struct {
	materials map[string]models.Material
}

func (s *memCatalog) GetByMaterialID(_ context.Context, materialID string) (*models.Material, error) {
	m, ok := s.materials[materialID]
	if !ok {
		return nil, NotFoundError{Resource: "material", ID: materialID}
	}
	copy := m
	return &copy, nil
}

type noticeEntry struct {
	postID      string
	recipientID string
	text        string
}

type memLog struct {
	mu      sync.Mutex
	notices []noticeEntry
	failErr error
}

func (l *memLog) AppendSystemMessage(_ context.Context, postID, recipientID, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failErr != nil {
		return l.failErr
	}
	l.notices = append(l.notices, noticeEntry{postID, recipientID, text})
	return nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []models.Pickup
}

func (p *memPublisher) Publish(_ string, updated *models.Pickup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *updated)
}

func (p *memPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Status
	}
	return out
}

// --- Fixture ---

type fixture struct {
	svc       *Service
	pickups   *memPickupStore
	posts     *memPostStore
	log       *memLog
	publisher *memPublisher
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		pickups: newMemPickupStore(),
		posts: newMemPostStore(models.Post{
			PostID:  "POST-TEST001",
			Type:    models.PostTypeWaste,
			OwnerID: testGiverID,
			Status:  models.PostStatusActive,
		}),
		log:       &memLog{},
		publisher: &memPublisher{},
		now:       time.Date(2025, 2, 25, 9, 0, 0, 0, time.UTC),
	}
	f.svc = &Service{
		Pickups: f.pickups,
		Posts:   f.posts,
		Materials: &memCatalog{materials: map[string]models.Material{
			"m1":      {MaterialID: "m1", DisplayName: "PET Plastic"},
			"MAT-ALU": {MaterialID: "MAT-ALU", DisplayName: "Aluminium Cans"},
			"MAT-CRT": {MaterialID: "MAT-CRT", DisplayName: "CRT Glass", Status: "RETIRED"},
		}},
		Log:              f.log,
		Publisher:        f.publisher,
		CancelLeadWindow: 5 * time.Hour,
		Now:              func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) propose(t *testing.T) *models.Pickup {
	t.Helper()
	p, err := f.svc.Propose(context.Background(), "POST-TEST001", testCollectorID, ProposalDetails{
		PickupDate:     "2025-03-01",
		PickupTime:     "10:00",
		PickupLocation: models.Address{FullText: "12 Riverside Rd"},
		ContactPerson:  "A. Nguyen",
		ContactNumber:  "0900000000",
	})
	require.NoError(t, err)
	return p
}

// --- Tests ---

func TestProposeCreatesProposedPickup(t *testing.T) {
	f := newFixture(t)
	p := f.propose(t)

	assert.Equal(t, models.PickupStatusProposed, p.Status)
	assert.Equal(t, models.RoleCollector, p.ProposedBy)
	assert.Equal(t, testGiverID, p.GiverID)
	assert.Equal(t, testCollectorID, p.CollectorID)
	assert.NotEqual(t, p.GiverID, p.CollectorID)
	assert.Equal(t, int64(1), p.Version)

	// The post is claimed, the giver is notified, viewers see the record.
	assert.Equal(t, models.PostStatusClaimed, f.posts.status("POST-TEST001"))
	require.Len(t, f.log.notices, 1)
	assert.Equal(t, testGiverID, f.log.notices[0].recipientID)
	assert.Equal(t, []string{models.PickupStatusProposed}, f.publisher.statuses())
}

func TestProposeRejectsOwnPost(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Propose(context.Background(), "POST-TEST001", testGiverID, ProposalDetails{
		PickupDate:     "2025-03-01",
		PickupTime:     "10:00",
		PickupLocation: models.Address{FullText: "12 Riverside Rd"},
		ContactPerson:  "A. Nguyen",
		ContactNumber:  "0900000000",
	})
	assert.IsType(t, ForbiddenError{}, err)
}

func TestProposeRequiresActivePost(t *testing.T) {
	f := newFixture(t)
	f.posts.SetStatus(context.Background(), "POST-TEST001", models.PostStatusClaimed)

	_, err := f.svc.Propose(context.Background(), "POST-TEST001", testCollectorID, ProposalDetails{
		PickupDate:     "2025-03-01",
		PickupTime:     "10:00",
		PickupLocation: models.Address{FullText: "12 Riverside Rd"},
		ContactPerson:  "A. Nguyen",
		ContactNumber:  "0900000000",
	})
	assert.IsType(t, WrongStateError{}, err)
}

func TestFullLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)
	id := p.PickupID

	p, err := f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusConfirmed, p.Status)
	require.NotNil(t, p.ConfirmedAt)

	p, err = f.svc.ApplyTransition(ctx, id, testCollectorID, models.RoleCollector, models.PickupStatusInTransit)
	require.NoError(t, err)
	require.NotNil(t, p.InTransitAt)

	p, err = f.svc.ApplyTransition(ctx, id, testCollectorID, models.RoleCollector, models.PickupStatusPickingOngoing)
	require.NoError(t, err)
	require.NotNil(t, p.PickingStartedAt)

	p, err = f.svc.Complete(ctx, id, testGiverID, []CompletionLineInput{
		{MaterialID: "m1", Quantity: 12, Payment: 60},
	}, "cash", "")
	require.NoError(t, err)

	assert.Equal(t, models.PickupStatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.Nil(t, p.CancelledAt)
	require.NotNil(t, p.Completion)
	assert.Equal(t, float64(12), p.Completion.TotalAmount)
	assert.Equal(t, float64(60), p.Completion.TotalPayment)
	assert.Equal(t, "PET Plastic", p.Completion.Lines[0].MaterialName)
	assert.Equal(t, models.PostStatusCompleted, f.posts.status("POST-TEST001"))

	// Subscribers saw every committed state, in order.
	assert.Equal(t, []string{
		models.PickupStatusProposed,
		models.PickupStatusConfirmed,
		models.PickupStatusInTransit,
		models.PickupStatusPickingOngoing,
		models.PickupStatusCompleted,
	}, f.publisher.statuses())

	// Denial on a terminal pickup is idempotent and never mutates it.
	for i := 0; i < 2; i++ {
		_, err = f.svc.ApplyTransition(ctx, id, testCollectorID, models.RoleCollector, models.PickupStatusCancelled)
		assert.IsType(t, TerminalError{}, err)
	}
	stored, err := f.pickups.GetByPickupID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusCompleted, stored.Status)
	assert.Equal(t, p.Version, stored.Version)
}

func TestCompletionArithmetic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)

	_, err := f.svc.ApplyTransition(ctx, p.PickupID, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)
	_, err = f.svc.ApplyTransition(ctx, p.PickupID, testCollectorID, models.RoleCollector, models.PickupStatusInTransit)
	require.NoError(t, err)

	p, err = f.svc.Complete(ctx, p.PickupID, testGiverID, []CompletionLineInput{
		{MaterialID: "m1", Quantity: 5, Payment: 10},
		{MaterialID: "MAT-ALU", Quantity: 3, Payment: 4},
	}, "transfer", "left at the gate")
	require.NoError(t, err)

	assert.Equal(t, float64(8), p.Completion.TotalAmount)
	assert.Equal(t, float64(14), p.Completion.TotalPayment)
	assert.Len(t, p.Completion.Lines, 2)
}

func TestCompleteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)
	id := p.PickupID

	_, err := f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)

	// Wrong state: completion requires IN_TRANSIT or PICKING_ONGOING.
	_, err = f.svc.Complete(ctx, id, testGiverID, []CompletionLineInput{{MaterialID: "m1", Quantity: 1}}, "cash", "")
	assert.IsType(t, WrongStateError{}, err)

	_, err = f.svc.ApplyTransition(ctx, id, testCollectorID, models.RoleCollector, models.PickupStatusInTransit)
	require.NoError(t, err)

	// Empty lines.
	_, err = f.svc.Complete(ctx, id, testGiverID, nil, "cash", "")
	assert.IsType(t, ValidationError{}, err)

	// Unknown material.
	_, err = f.svc.Complete(ctx, id, testGiverID, []CompletionLineInput{{MaterialID: "m404", Quantity: 1}}, "cash", "")
	assert.IsType(t, NotFoundError{}, err)

	// Retired material: still in the catalog for old records, not usable
	// on new completions.
	_, err = f.svc.Complete(ctx, id, testGiverID, []CompletionLineInput{{MaterialID: "MAT-CRT", Quantity: 1}}, "cash", "")
	assert.IsType(t, ValidationError{}, err)

	// Non-positive quantity.
	_, err = f.svc.Complete(ctx, id, testGiverID, []CompletionLineInput{{MaterialID: "m1", Quantity: 0}}, "cash", "")
	assert.IsType(t, ValidationError{}, err)

	// Wrong actor: only the giver completes.
	_, err = f.svc.Complete(ctx, id, testCollectorID, []CompletionLineInput{{MaterialID: "m1", Quantity: 1}}, "cash", "")
	assert.IsType(t, ForbiddenError{}, err)

	// Nothing above moved the pickup.
	stored, err := f.pickups.GetByPickupID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusInTransit, stored.Status)
	assert.Nil(t, stored.Completion)
}

func TestApplyTransitionRejectsBareCompletion(t *testing.T) {
	f := newFixture(t)
	p := f.propose(t)

	_, err := f.svc.ApplyTransition(context.Background(), p.PickupID, testGiverID, models.RoleGiver, models.PickupStatusCompleted)
	assert.IsType(t, ValidationError{}, err)
}

func TestCancelLeadTimeThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)
	id := p.PickupID

	_, err := f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)

	// Two hours before the scheduled pickup: inside the window.
	f.now = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	_, err = f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusCancelled)
	assert.IsType(t, LeadTimeError{}, err)

	// Ten hours before: allowed.
	f.now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p, err = f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusCancelled, p.Status)
	require.NotNil(t, p.CancelledAt)
	assert.Nil(t, p.CompletedAt)
}

func TestConcurrentTransitionsOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)
	id := p.PickupID

	_, err := f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.svc.ApplyTransition(ctx, id, testCollectorID, models.RoleCollector, models.PickupStatusInTransit)
			results <- err
		}()
	}

	var successes, denials int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			successes++
		} else {
			assert.IsType(t, WrongStateError{}, err)
			denials++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, denials)

	stored, err := f.pickups.GetByPickupID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusInTransit, stored.Status)
}

func TestNoticeFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)

	f.log.failErr = errors.New("conversation service down")

	updated, err := f.svc.ApplyTransition(ctx, p.PickupID, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusConfirmed, updated.Status)

	stored, err := f.pickups.GetByPickupID(ctx, p.PickupID)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusConfirmed, stored.Status)
}

func TestPostPropagationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)
	id := p.PickupID

	_, err := f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)
	_, err = f.svc.ApplyTransition(ctx, id, testCollectorID, models.RoleCollector, models.PickupStatusInTransit)
	require.NoError(t, err)

	f.posts.setStatusErr = errors.New("posts service down")

	p, err = f.svc.Complete(ctx, id, testGiverID, []CompletionLineInput{{MaterialID: "m1", Quantity: 1, Payment: 2}}, "cash", "")
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusCompleted, p.Status)
}

func TestEditProposalKeepsProposerOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)
	id := p.PickupID

	// The giver is not the proposer yet and may not edit.
	details := ProposalDetails{
		PickupDate:     "2025-03-02",
		PickupTime:     "14:00",
		PickupLocation: models.Address{FullText: "12 Riverside Rd"},
		ContactPerson:  "A. Nguyen",
		ContactNumber:  "0900000000",
	}
	_, err := f.svc.EditProposal(ctx, id, testGiverID, details)
	assert.IsType(t, ForbiddenError{}, err)

	// The collector edits; the proposal stays PROPOSED.
	p, err = f.svc.EditProposal(ctx, id, testCollectorID, details)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusProposed, p.Status)
	assert.Equal(t, "2025-03-02", p.PickupDate)
	assert.Equal(t, models.RoleCollector, p.ProposedBy)

	// After confirmation nobody may edit.
	_, err = f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)
	_, err = f.svc.EditProposal(ctx, id, testCollectorID, details)
	assert.IsType(t, WrongStateError{}, err)
}

func TestAddProofPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t)
	id := p.PickupID

	photo := models.MediaPointer{ID: "ph1", URL: "https://cdn.example.com/p.jpg", FileName: "p.jpg", FileType: "image/jpeg"}

	// Not allowed before the collector is underway.
	_, err := f.svc.AddProofPhoto(ctx, id, testCollectorID, photo)
	assert.IsType(t, WrongStateError{}, err)

	_, err = f.svc.ApplyTransition(ctx, id, testGiverID, models.RoleGiver, models.PickupStatusConfirmed)
	require.NoError(t, err)
	_, err = f.svc.ApplyTransition(ctx, id, testCollectorID, models.RoleCollector, models.PickupStatusInTransit)
	require.NoError(t, err)

	// Only the collector uploads.
	_, err = f.svc.AddProofPhoto(ctx, id, testGiverID, photo)
	assert.IsType(t, ForbiddenError{}, err)

	p, err = f.svc.AddProofPhoto(ctx, id, testCollectorID, photo)
	require.NoError(t, err)
	require.Len(t, p.ProofPhotos, 1)
	assert.Equal(t, "https://cdn.example.com/p.jpg", p.ProofPhotos[0].URL)
}
