package service

import (
	"context"
	roomserrors "studentnest/internal/rooms/errors"
	"studentnest/internal/rooms/validator"
	"studentnest/pkg/auth"
	"studentnest/pkg/config"
	apperrors "studentnest/pkg/errors"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRoomRepository struct {
	createFunc        func(ctx context.Context, room *model.Room) error
	findByIDFunc      func(ctx context.Context, id string) (*model.Room, error)
	searchFunc        func(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, error)
	countBySearchFunc func(ctx context.Context, filter model.RoomFilter) (int64, error)
	deleteFunc        func(ctx context.Context, id string) error
}

func (m *mockRoomRepository) Create(ctx context.Context, room *model.Room) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, room)
	}
	room.ID = "65c000000000000000000001"
	return nil
}

func (m *mockRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, roomserrors.ErrNotFound
}

func (m *mockRoomRepository) Search(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, filter, limit, offset)
	}
	return []*model.Room{}, nil
}

func (m *mockRoomRepository) CountBySearch(ctx context.Context, filter model.RoomFilter) (int64, error) {
	if m.countBySearchFunc != nil {
		return m.countBySearchFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockRoomRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func newTestRoomService(repo *mockRoomRepository) RoomService {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	return NewRoomService(repo, validator.NewRoomValidator(log), &config.Config{Log: log})
}

func ownerIdentity(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: model.RoleOwner}
}

func validRoom() *model.Room {
	return &model.Room{
		Title:       "Sunny single room near campus",
		RoomType:    model.RoomTypeSingle,
		City:        "Pune",
		MonthlyRent: 9000,
		ImageURLs:   []string{"https://cdn.example.com/rooms/1.jpg"},
	}
}

func TestCreate_OwnerOnly(t *testing.T) {
	svc := newTestRoomService(&mockRoomRepository{})

	err := svc.Create(context.Background(), &auth.Identity{UserID: "stud-1", Role: model.RoleStudent}, validRoom())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestCreate_SetsOwnershipAndFlags(t *testing.T) {
	svc := newTestRoomService(&mockRoomRepository{})
	room := validRoom()

	err := svc.Create(context.Background(), ownerIdentity("owner-1"), room)

	require.NoError(t, err)
	assert.Equal(t, "owner-1", room.OwnerID)
	assert.True(t, room.Available)
	assert.False(t, room.Verified)
}

func TestCreate_RequiresImageURL(t *testing.T) {
	svc := newTestRoomService(&mockRoomRepository{})
	room := validRoom()
	room.ImageURLs = nil

	err := svc.Create(context.Background(), ownerIdentity("owner-1"), room)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.AsAppError(err).Code)
}

func TestCreate_NormalizesContactPhone(t *testing.T) {
	svc := newTestRoomService(&mockRoomRepository{})
	room := validRoom()
	room.ContactPhone = " 98765 43210 "

	err := svc.Create(context.Background(), ownerIdentity("owner-1"), room)

	require.NoError(t, err)
	assert.Equal(t, "+919876543210", room.ContactPhone)
}

func TestCreate_InvalidContactPhoneRejected(t *testing.T) {
	svc := newTestRoomService(&mockRoomRepository{})
	room := validRoom()
	room.ContactPhone = "not-a-number"

	err := svc.Create(context.Background(), ownerIdentity("owner-1"), room)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.AsAppError(err).Code)
}

func TestSearch_InvalidPriceRange(t *testing.T) {
	svc := newTestRoomService(&mockRoomRepository{})

	minPrice, maxPrice := 9000.0, 5000.0
	_, _, err := svc.Search(context.Background(), model.RoomFilter{MinPrice: &minPrice, MaxPrice: &maxPrice}, 10, 0)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.AsAppError(err).Code)
}

func TestDelete_NonOwnerForbidden(t *testing.T) {
	repo := &mockRoomRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, OwnerID: "owner-1"}, nil
		},
	}
	svc := newTestRoomService(repo)

	err := svc.Delete(context.Background(), ownerIdentity("owner-2"), "65c000000000000000000001")

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newTestRoomService(&mockRoomRepository{})

	_, err := svc.GetByID(context.Background(), "65c000000000000000000009")

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.AsAppError(err).Code)
}
