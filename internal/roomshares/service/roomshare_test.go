package service

import (
	"context"
	roomsharerrors "studentnest/internal/roomshares/errors"
	"studentnest/internal/roomshares/repository"
	"studentnest/internal/roomshares/validator"
	"studentnest/pkg/auth"
	"studentnest/pkg/config"
	mongotx "studentnest/pkg/db/mongo"
	apperrors "studentnest/pkg/errors"
	"studentnest/pkg/events"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"
	"studentnest/pkg/sealer"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type mockShareRepository struct {
	createFunc            func(ctx context.Context, share *model.RoomShare) error
	findByIDFunc          func(ctx context.Context, id string) (*model.RoomShare, error)
	findActiveFunc        func(ctx context.Context, filter repository.ShareFilter, limit int, offset int64) ([]*model.RoomShare, error)
	countActiveFunc       func(ctx context.Context, filter repository.ShareFilter) (int64, error)
	updateWithVersionFunc func(ctx context.Context, share *model.RoomShare) error
	deleteFunc            func(ctx context.Context, id string) error

	capturedShare *model.RoomShare
}

func (m *mockShareRepository) Create(ctx context.Context, share *model.RoomShare) error {
	m.capturedShare = share
	if m.createFunc != nil {
		return m.createFunc(ctx, share)
	}
	share.ID = "65b000000000000000000001"
	share.Version = 1
	return nil
}

func (m *mockShareRepository) FindByID(ctx context.Context, id string) (*model.RoomShare, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, roomsharerrors.ErrNotFound
}

func (m *mockShareRepository) FindActive(ctx context.Context, filter repository.ShareFilter, limit int, offset int64) ([]*model.RoomShare, error) {
	if m.findActiveFunc != nil {
		return m.findActiveFunc(ctx, filter, limit, offset)
	}
	return []*model.RoomShare{}, nil
}

func (m *mockShareRepository) CountActive(ctx context.Context, filter repository.ShareFilter) (int64, error) {
	if m.countActiveFunc != nil {
		return m.countActiveFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockShareRepository) UpdateWithVersion(ctx context.Context, share *model.RoomShare) error {
	m.capturedShare = share
	if m.updateWithVersionFunc != nil {
		return m.updateWithVersionFunc(ctx, share)
	}
	share.Version++
	return nil
}

func (m *mockShareRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockShareRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockRoomSearcher struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Room, error)
	searchFunc   func(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, error)
}

func (m *mockRoomSearcher) FindByID(ctx context.Context, id string) (*model.Room, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Room{
		ID:                 id,
		OwnerID:            "owner-1",
		Available:          true,
		MonthlyRent:        12000,
		MaintenanceCharges: 2000,
	}, nil
}

func (m *mockRoomSearcher) Search(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, filter, limit, offset)
	}
	return []*model.Room{}, nil
}

const testInviteKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=" // 32 bytes

func newTestShareService(repo *mockShareRepository, rooms *mockRoomSearcher) ShareService {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	cfg := &config.Config{
		Log:                  log,
		MinShareParticipants: 2,
		MaxShareParticipants: 6,
	}
	s, _ := sealer.New(testInviteKey)
	return NewShareService(repo, rooms, validator.NewShareValidator(log, 2, 6), events.NoopPublisher{}, s, cfg)
}

func student(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: model.RoleStudent}
}

func activeShare() *model.RoomShare {
	return &model.RoomShare{
		ID:                 "65b000000000000000000001",
		RoomID:             "65b000000000000000000002",
		InitiatorID:        "init-1",
		MonthlyRent:        12000,
		MaintenanceCharges: 2000,
		MaxParticipants:    3,
		CurrentParticipants: []model.Participant{{
			UserID:       "init-1",
			Status:       model.ParticipantConfirmed,
			JoinedAt:     time.Now().UTC(),
			SharedAmount: 14000,
		}},
		Status:  model.ShareActive,
		Version: 2,
	}
}

func withShare(s *model.RoomShare) *mockShareRepository {
	return &mockShareRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.RoomShare, error) {
			if id == s.ID {
				clone := *s
				clone.CurrentParticipants = append([]model.Participant{}, s.CurrentParticipants...)
				clone.Applications = append([]model.Application{}, s.Applications...)
				clone.Interested = append([]string{}, s.Interested...)
				return &clone, nil
			}
			return nil, roomsharerrors.ErrNotFound
		},
	}
}

func TestCreate_InitiatorIsFirstConfirmedParticipant(t *testing.T) {
	repo := &mockShareRepository{}
	svc := newTestShareService(repo, &mockRoomSearcher{})

	share := &model.RoomShare{
		RoomID:          "65b000000000000000000002",
		MaxParticipants: 3,
	}

	err := svc.Create(context.Background(), student("init-1"), share)

	require.NoError(t, err)
	assert.Equal(t, "init-1", share.InitiatorID)
	assert.Equal(t, model.ShareActive, share.Status)
	require.Len(t, share.CurrentParticipants, 1)
	assert.Equal(t, "init-1", share.CurrentParticipants[0].UserID)
	assert.Equal(t, model.ParticipantConfirmed, share.CurrentParticipants[0].Status)
	assert.Equal(t, 14000.0, share.CurrentParticipants[0].SharedAmount)
	assert.Equal(t, 2, share.AvailableSlots())
}

func TestCreate_MaxParticipantsOutOfRange(t *testing.T) {
	svc := newTestShareService(&mockShareRepository{}, &mockRoomSearcher{})

	share := &model.RoomShare{
		RoomID:          "65b000000000000000000002",
		MaxParticipants: 9,
	}

	err := svc.Create(context.Background(), student("init-1"), share)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.AsAppError(err).Code)
}

func TestApply_InitiatorCannotApply(t *testing.T) {
	s := activeShare()
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	_, err := svc.Apply(context.Background(), student("init-1"), s.ID, "hi", nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestApply_DuplicatePendingConflicts(t *testing.T) {
	s := activeShare()
	s.Applications = []model.Application{{
		ID:          "app-1",
		ApplicantID: "stud-2",
		Status:      model.ApplicationPending,
		AppliedAt:   time.Now().UTC(),
	}}
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	_, err := svc.Apply(context.Background(), student("stud-2"), s.ID, "again", nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestApply_FullShareConflicts(t *testing.T) {
	s := activeShare()
	s.MaxParticipants = 1
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	_, err := svc.Apply(context.Background(), student("stud-2"), s.ID, "hi", nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestRespondApplication_AcceptAppendsAndRecomputes(t *testing.T) {
	s := activeShare()
	s.Applications = []model.Application{{
		ID:          "app-1",
		ApplicantID: "stud-2",
		Status:      model.ApplicationPending,
		AppliedAt:   time.Now().UTC(),
	}}
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	updated, err := svc.RespondApplication(context.Background(), student("init-1"), s.ID, "app-1", true, "welcome")

	require.NoError(t, err)
	assert.Equal(t, model.ApplicationAccepted, updated.Applications[0].Status)
	assert.Equal(t, 2, updated.ConfirmedCount())
	assert.Equal(t, 1, updated.AvailableSlots())
	// 14000 monthly cost split across two confirmed participants.
	for _, p := range updated.CurrentParticipants {
		assert.Equal(t, 7000.0, p.SharedAmount)
	}
}

func TestRespondApplication_AcceptOnFullShareConflicts(t *testing.T) {
	s := activeShare()
	s.MaxParticipants = 2
	s.CurrentParticipants = append(s.CurrentParticipants, model.Participant{
		UserID: "stud-9", Status: model.ParticipantConfirmed, JoinedAt: time.Now().UTC(),
	})
	s.Applications = []model.Application{{
		ID:          "app-1",
		ApplicantID: "stud-2",
		Status:      model.ApplicationPending,
		AppliedAt:   time.Now().UTC(),
	}}
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	_, err := svc.RespondApplication(context.Background(), student("init-1"), s.ID, "app-1", true, "")

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestRespondApplication_RacingAcceptLosesOnVersion(t *testing.T) {
	s := activeShare()
	s.Applications = []model.Application{{
		ID:          "app-1",
		ApplicantID: "stud-2",
		Status:      model.ApplicationPending,
		AppliedAt:   time.Now().UTC(),
	}}
	repo := withShare(s)
	repo.updateWithVersionFunc = func(ctx context.Context, share *model.RoomShare) error {
		return roomsharerrors.ErrVersionConflict
	}
	svc := newTestShareService(repo, &mockRoomSearcher{})

	_, err := svc.RespondApplication(context.Background(), student("init-1"), s.ID, "app-1", true, "")

	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeVersionConflict, appErr.Code)
}

func TestLeave_InitiatorCannotLeave(t *testing.T) {
	s := activeShare()
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	_, err := svc.Leave(context.Background(), student("init-1"), s.ID)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestLeave_RecomputesSharedAmounts(t *testing.T) {
	s := activeShare()
	s.CurrentParticipants = append(s.CurrentParticipants, model.Participant{
		UserID: "stud-2", Status: model.ParticipantConfirmed, JoinedAt: time.Now().UTC(), SharedAmount: 7000,
	})
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	updated, err := svc.Leave(context.Background(), student("stud-2"), s.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, updated.ConfirmedCount())
	assert.Equal(t, 2, updated.AvailableSlots())
	assert.Equal(t, 14000.0, updated.CurrentParticipants[0].SharedAmount)
}

func TestMarkInterested_Toggles(t *testing.T) {
	s := activeShare()
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	updated, err := svc.MarkInterested(context.Background(), student("stud-5"), s.ID)
	require.NoError(t, err)
	assert.Contains(t, updated.Interested, "stud-5")

	s.Interested = updated.Interested
	updated, err = svc.MarkInterested(context.Background(), student("stud-5"), s.ID)
	require.NoError(t, err)
	assert.NotContains(t, updated.Interested, "stud-5")
}

func TestUpdateStatus_TerminalTransitionStampsCompletion(t *testing.T) {
	s := activeShare()
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	updated, err := svc.UpdateStatus(context.Background(), student("init-1"), s.ID, model.ShareCompleted, "everyone moved in")

	require.NoError(t, err)
	assert.Equal(t, model.ShareCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "everyone moved in", updated.CompletionReason)
}

func TestUpdateStatus_TerminalStateRejectsFurtherMoves(t *testing.T) {
	s := activeShare()
	s.Status = model.ShareCancelled
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	_, err := svc.UpdateStatus(context.Background(), student("init-1"), s.ID, model.ShareActive, "")

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestDelete_BlockedWhileConfirmedParticipantsRemain(t *testing.T) {
	s := activeShare()
	s.CurrentParticipants = append(s.CurrentParticipants, model.Participant{
		UserID: "stud-2", Status: model.ParticipantConfirmed, JoinedAt: time.Now().UTC(),
	})
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	err := svc.Delete(context.Background(), student("init-1"), s.ID)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestDelete_AllowedAfterParticipantsLeft(t *testing.T) {
	s := activeShare()
	s.CurrentParticipants = append(s.CurrentParticipants, model.Participant{
		UserID: "stud-2", Status: model.ParticipantLeft, JoinedAt: time.Now().UTC(),
	})
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	err := svc.Delete(context.Background(), student("init-1"), s.ID)

	require.NoError(t, err)
}

func TestList_ScoresAgainstInitiatorPreferences(t *testing.T) {
	s := activeShare()
	s.Preferences = map[string]string{
		"sleep_schedule": "early",
		"cleanliness":    "high",
		"study_habits":   "quiet",
	}
	repo := withShare(s)
	repo.findActiveFunc = func(ctx context.Context, filter repository.ShareFilter, limit int, offset int64) ([]*model.RoomShare, error) {
		return []*model.RoomShare{s}, nil
	}
	repo.countActiveFunc = func(ctx context.Context, filter repository.ShareFilter) (int64, error) {
		return 1, nil
	}
	svc := newTestShareService(repo, &mockRoomSearcher{})

	prefs := map[string]string{
		"sleep_schedule": "early",
		"cleanliness":    "high",
		"study_habits":   "social",
	}
	listings, total, err := svc.List(context.Background(), student("stud-2"), ListFilter{}, prefs, 10, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, listings, 1)
	assert.Equal(t, 67, listings[0].CompatibilityScore)
}

func TestCalculateCompatibility_ScoresAgainstInitiator(t *testing.T) {
	s := activeShare()
	s.Preferences = map[string]string{
		"sleep_schedule": "early",
		"cleanliness":    "high",
	}
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	score, err := svc.CalculateCompatibility(context.Background(), s.ID, map[string]string{
		"sleep_schedule": "early",
		"cleanliness":    "low",
	})

	require.NoError(t, err)
	assert.Equal(t, 50, score)
}

func TestCalculateCompatibility_UnknownShareNotFound(t *testing.T) {
	svc := newTestShareService(withShare(activeShare()), &mockRoomSearcher{})

	_, err := svc.CalculateCompatibility(context.Background(), "65b0000000000000000000ff", nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.AsAppError(err).Code)
}

func TestList_CityFilterWithNoRoomsShortCircuits(t *testing.T) {
	rooms := &mockRoomSearcher{
		searchFunc: func(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, error) {
			return []*model.Room{}, nil
		},
	}
	svc := newTestShareService(&mockShareRepository{}, rooms)

	listings, total, err := svc.List(context.Background(), student("stud-2"), ListFilter{City: "Pune"}, nil, 10, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, listings)
}

func TestInvite_MintAndApplyRoundTrip(t *testing.T) {
	s := activeShare()
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	token, err := svc.MintInvite(context.Background(), student("init-1"), s.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	updated, err := svc.ApplyByInvite(context.Background(), student("stud-2"), token, "via invite", nil)
	require.NoError(t, err)
	assert.True(t, updated.HasPendingApplicationFrom("stud-2"))
}

func TestInvite_MintRequiresInitiator(t *testing.T) {
	s := activeShare()
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	_, err := svc.MintInvite(context.Background(), student("stud-2"), s.ID)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestInvite_TamperedTokenRejected(t *testing.T) {
	s := activeShare()
	svc := newTestShareService(withShare(s), &mockRoomSearcher{})

	_, err := svc.ApplyByInvite(context.Background(), student("stud-2"), "not-a-real-token", "", nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.AsAppError(err).Code)
}
