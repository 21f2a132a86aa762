package service

import (
	"context"
	"errors"
	roomserrors "studentnest/internal/rooms/errors"
	"studentnest/internal/rooms/repository"
	"studentnest/internal/rooms/validator"
	"studentnest/pkg/auth"
	"studentnest/pkg/config"
	apperrors "studentnest/pkg/errors"
	"studentnest/pkg/model"
	"studentnest/pkg/sanitizer"
	"sync"
)

type RoomService interface {
	Create(ctx context.Context, actor *auth.Identity, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	Search(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, int64, error)
	Delete(ctx context.Context, actor *auth.Identity, id string) error
}

type roomService struct {
	repo      repository.RoomRepository
	validator *validator.RoomValidator
	cfg       *config.Config
}

func NewRoomService(
	repo repository.RoomRepository,
	validator *validator.RoomValidator,
	cfg *config.Config,
) RoomService {
	return &roomService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *roomService) Create(ctx context.Context, actor *auth.Identity, room *model.Room) error {
	if actor.Role != model.RoleOwner {
		return apperrors.Forbidden("Only owners can list rooms")
	}

	room.OwnerID = actor.UserID
	room.Available = true
	room.Verified = false
	s.sanitize(room)

	if room.ContactPhone != "" {
		normalized := sanitizer.NormalizePhone(room.ContactPhone)
		if normalized == "" {
			return apperrors.InvalidInput("Contact phone number is not a valid Indian or US number")
		}
		room.ContactPhone = normalized
	}

	if err := s.validator.Validate(room); err != nil {
		s.cfg.Log.Warn("Room validation failed", "error", err)
		return apperrors.Validation("Room validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, room); err != nil {
		s.cfg.Log.Error("Failed to create room", "error", err)
		return apperrors.Internal("Failed to create room", err)
	}

	s.cfg.Log.Info("Room created successfully", "id", room.ID, "owner_id", room.OwnerID, "city", room.City)
	return nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}
		if errors.Is(err, roomserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid room ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}

	return room, nil
}

func (s *roomService) Search(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, int64, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, apperrors.InvalidInput("min_price cannot exceed max_price")
	}

	var count int64
	var rooms []*model.Room
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountBySearch(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count rooms", "error", errCount)
			errCount = apperrors.Internal("Failed to count rooms", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		rooms, errFind = s.repo.Search(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to search rooms", "error", errFind)
			errFind = apperrors.Internal("Failed to search rooms", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return rooms, count, nil
}

func (s *roomService) Delete(ctx context.Context, actor *auth.Identity, id string) error {
	room, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if actor.Role != model.RoleAdmin && actor.UserID != room.OwnerID {
		return apperrors.Forbidden("Only the owner can delete this room")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Room", id)
		}
		return apperrors.Internal("Failed to delete room", err)
	}

	s.cfg.Log.Info("Room deleted successfully", "id", id)
	return nil
}

func (s *roomService) sanitize(room *model.Room) {
	room.Title = sanitizer.SanitizeFreeText(room.Title)
	room.Description = sanitizer.SanitizeFreeText(room.Description)
	room.City = sanitizer.TrimAndNormalize(room.City)
	room.State = sanitizer.TrimAndNormalize(room.State)
	room.Address = sanitizer.SanitizeFreeText(room.Address)
	room.ContactPhone = sanitizer.TrimAndNormalize(room.ContactPhone)
	room.Amenities = sanitizer.SanitizeFreeTextSlice(room.Amenities)
}
