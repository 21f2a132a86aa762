package service

import (
	"context"
	"errors"
	"fmt"
	roomserrors "studentnest/internal/rooms/errors"
	roomsharerrors "studentnest/internal/roomshares/errors"
	"studentnest/internal/roomshares/repository"
	"studentnest/internal/roomshares/validator"
	"studentnest/pkg/auth"
	"studentnest/pkg/compat"
	"studentnest/pkg/config"
	apperrors "studentnest/pkg/errors"
	"studentnest/pkg/events"
	"studentnest/pkg/model"
	"studentnest/pkg/sanitizer"
	"studentnest/pkg/sealer"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// roomSearchLimit caps the room lookup that backs city and room-type filters
// on the share listing.
const roomSearchLimit = 200

// RoomSearcher is the slice of the rooms repository the share service needs:
// reference validation on create and room-backed listing filters.
type RoomSearcher interface {
	FindByID(ctx context.Context, id string) (*model.Room, error)
	Search(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, error)
}

// ShareListing is a share decorated with the querying student's compatibility
// score against the initiator's preferences.
type ShareListing struct {
	Share              *model.RoomShare `json:"share"`
	CompatibilityScore int              `json:"compatibility_score"`
}

// ListFilter narrows the share listing.
type ListFilter struct {
	City     string
	RoomType string
	MinPrice *float64
	MaxPrice *float64
}

type ShareService interface {
	Create(ctx context.Context, actor *auth.Identity, share *model.RoomShare) error
	GetByID(ctx context.Context, id string) (*model.RoomShare, error)
	List(ctx context.Context, actor *auth.Identity, filter ListFilter, prefs map[string]string, limit int, offset int64) ([]ShareListing, int64, error)
	CalculateCompatibility(ctx context.Context, id string, prefs map[string]string) (int, error)
	Apply(ctx context.Context, actor *auth.Identity, id string, message string, prefs map[string]string) (*model.RoomShare, error)
	ApplyByInvite(ctx context.Context, actor *auth.Identity, token string, message string, prefs map[string]string) (*model.RoomShare, error)
	RespondApplication(ctx context.Context, actor *auth.Identity, id string, applicationID string, accept bool, response string) (*model.RoomShare, error)
	Leave(ctx context.Context, actor *auth.Identity, id string) (*model.RoomShare, error)
	RemoveParticipant(ctx context.Context, actor *auth.Identity, id string, userID string) (*model.RoomShare, error)
	MarkInterested(ctx context.Context, actor *auth.Identity, id string) (*model.RoomShare, error)
	UpdateStatus(ctx context.Context, actor *auth.Identity, id string, status string, reason string) (*model.RoomShare, error)
	AddHouseRules(ctx context.Context, actor *auth.Identity, id string, rules []string) (*model.RoomShare, error)
	Delete(ctx context.Context, actor *auth.Identity, id string) error
	MintInvite(ctx context.Context, actor *auth.Identity, id string) (string, error)
}

type shareService struct {
	repo      repository.ShareRepository
	rooms     RoomSearcher
	validator *validator.ShareValidator
	publisher events.Publisher
	sealer    *sealer.Sealer
	cfg       *config.Config
}

func NewShareService(
	repo repository.ShareRepository,
	rooms RoomSearcher,
	validator *validator.ShareValidator,
	publisher events.Publisher,
	sealer *sealer.Sealer,
	cfg *config.Config,
) ShareService {
	return &shareService{
		repo:      repo,
		rooms:     rooms,
		validator: validator,
		publisher: publisher,
		sealer:    sealer,
		cfg:       cfg,
	}
}

func (s *shareService) Create(ctx context.Context, actor *auth.Identity, share *model.RoomShare) error {
	if actor.Role != model.RoleStudent {
		return apperrors.Forbidden("Only students can start a room share")
	}

	room, err := s.rooms.FindByID(ctx, share.RoomID)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) || errors.Is(err, roomserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Room does not exist")
		}
		return apperrors.Internal("Failed to verify room", err)
	}

	share.InitiatorID = actor.UserID
	share.Status = model.ShareActive
	if share.MonthlyRent == 0 {
		share.MonthlyRent = room.MonthlyRent
	}
	if share.MaintenanceCharges == 0 {
		share.MaintenanceCharges = room.MaintenanceCharges
	}
	if share.SecurityDeposit == 0 {
		share.SecurityDeposit = room.SecurityDeposit
	}

	// The initiator is the first confirmed participant.
	share.CurrentParticipants = []model.Participant{{
		UserID:   actor.UserID,
		Status:   model.ParticipantConfirmed,
		JoinedAt: time.Now().UTC(),
	}}
	share.Applications = nil
	share.Interested = nil
	share.RecomputeSharedAmounts()
	s.sanitize(share)

	if err := s.validator.Validate(share); err != nil {
		s.cfg.Log.Warn("Room share validation failed", "error", err)
		return apperrors.Validation("Room share validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, share); err != nil {
		s.cfg.Log.Error("Failed to create room share", "error", err)
		return apperrors.Internal("Failed to create room share", err)
	}

	s.cfg.Log.Info("Room share created successfully",
		"id", share.ID,
		"room_id", share.RoomID,
		"initiator_id", share.InitiatorID,
		"max_participants", share.MaxParticipants,
	)
	s.publish(ctx, model.EventShareCreated, share, actor.UserID, map[string]any{"room_id": share.RoomID})
	return nil
}

func (s *shareService) GetByID(ctx context.Context, id string) (*model.RoomShare, error) {
	return s.load(ctx, id)
}

func (s *shareService) List(ctx context.Context, actor *auth.Identity, filter ListFilter, prefs map[string]string, limit int, offset int64) ([]ShareListing, int64, error) {
	repoFilter := repository.ShareFilter{
		MinPrice: filter.MinPrice,
		MaxPrice: filter.MaxPrice,
	}

	if filter.City != "" || filter.RoomType != "" {
		rooms, err := s.rooms.Search(ctx, model.RoomFilter{
			City:     filter.City,
			RoomType: filter.RoomType,
		}, roomSearchLimit, 0)
		if err != nil {
			s.cfg.Log.Error("Failed to resolve rooms for share listing", "error", err)
			return nil, 0, apperrors.Internal("Failed to search room shares", err)
		}
		roomIDs := make([]string, 0, len(rooms))
		for _, room := range rooms {
			roomIDs = append(roomIDs, room.ID)
		}
		if len(roomIDs) == 0 {
			return []ShareListing{}, 0, nil
		}
		repoFilter.RoomIDs = roomIDs
	}

	var count int64
	var shares []*model.RoomShare
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountActive(ctx, repoFilter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count room shares", "error", errCount)
			errCount = apperrors.Internal("Failed to count room shares", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		shares, errFind = s.repo.FindActive(ctx, repoFilter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list room shares", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve room shares", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	prefs = sanitizer.SanitizePreferences(prefs)
	listings := make([]ShareListing, 0, len(shares))
	for _, share := range shares {
		listings = append(listings, ShareListing{
			Share:              share,
			CompatibilityScore: compat.Score(prefs, share.Preferences),
		})
	}

	return listings, count, nil
}

// CalculateCompatibility scores the supplied preferences against the share
// initiator's.
func (s *shareService) CalculateCompatibility(ctx context.Context, id string, prefs map[string]string) (int, error) {
	share, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	return compat.Score(sanitizer.SanitizePreferences(prefs), share.Preferences), nil
}

func (s *shareService) Apply(ctx context.Context, actor *auth.Identity, id string, message string, prefs map[string]string) (*model.RoomShare, error) {
	return s.mutate(ctx, id, model.EventShareApplied, actor, func(share *model.RoomShare) error {
		if actor.Role != model.RoleStudent {
			return apperrors.Forbidden("Only students can apply to a room share")
		}
		if actor.UserID == share.InitiatorID {
			return apperrors.Forbidden("The initiator cannot apply to their own share")
		}
		if share.Status != model.ShareActive {
			return apperrors.Conflict(fmt.Sprintf("Room share is %s and not accepting applications", share.Status))
		}
		if share.AvailableSlots() == 0 {
			return apperrors.Conflict("Room share is full")
		}
		if share.IsConfirmedParticipant(actor.UserID) {
			return apperrors.Conflict("You are already a participant of this share")
		}
		if share.HasPendingApplicationFrom(actor.UserID) {
			return apperrors.Conflict("You already have a pending application on this share")
		}

		share.Applications = append(share.Applications, model.Application{
			ID:          uuid.NewString(),
			ApplicantID: actor.UserID,
			Message:     sanitizer.SanitizeFreeText(message),
			Preferences: sanitizer.SanitizePreferences(prefs),
			Status:      model.ApplicationPending,
			AppliedAt:   time.Now().UTC(),
		})
		return nil
	})
}

// ApplyByInvite resolves an opaque invite token to its share and applies. The
// token binds both the share and the room; a mismatch means a stale or
// tampered link.
func (s *shareService) ApplyByInvite(ctx context.Context, actor *auth.Identity, token string, message string, prefs map[string]string) (*model.RoomShare, error) {
	if s.sealer == nil {
		return nil, apperrors.Unavailable("invite links")
	}

	shareID, roomID, err := s.sealer.ParseInviteToken(token)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid or expired invite link")
	}

	share, err := s.load(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share.RoomID != roomID {
		return nil, apperrors.InvalidInput("Invalid or expired invite link")
	}

	return s.Apply(ctx, actor, shareID, message, prefs)
}

// RespondApplication is the initiator's accept or decline. Acceptance is a
// single atomic transition: inside one transaction the share is reloaded, the
// capacity re-checked, the application flipped, the applicant appended and the
// shared amounts recomputed, all persisted through the version CAS. Two racing
// accepts cannot overshoot MaxParticipants.
func (s *shareService) RespondApplication(ctx context.Context, actor *auth.Identity, id string, applicationID string, accept bool, response string) (*model.RoomShare, error) {
	var updated *model.RoomShare
	var applicantID string

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		share, err := s.load(sessCtx, id)
		if err != nil {
			return err
		}

		if actor.UserID != share.InitiatorID {
			return apperrors.Forbidden("Only the initiator can respond to applications")
		}

		app := share.FindApplication(applicationID)
		if app == nil {
			return apperrors.NotFoundWithID("Application", applicationID)
		}
		if app.Status != model.ApplicationPending {
			return apperrors.Conflict("Application has already been responded to")
		}
		applicantID = app.ApplicantID

		now := time.Now().UTC()
		app.RespondedAt = &now
		app.Response = sanitizer.SanitizeFreeText(response)

		if accept {
			if share.AvailableSlots() == 0 {
				return apperrors.Conflict("Room share is full")
			}
			app.Status = model.ApplicationAccepted
			share.CurrentParticipants = append(share.CurrentParticipants, model.Participant{
				UserID:   app.ApplicantID,
				Status:   model.ParticipantConfirmed,
				JoinedAt: now,
			})
			share.RecomputeSharedAmounts()
		} else {
			app.Status = model.ApplicationDeclined
		}

		if err := s.persist(sessCtx, share); err != nil {
			return err
		}
		updated = share
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := model.EventShareDeclined
	if accept {
		action = model.EventShareAccepted
	}
	s.publish(ctx, action, updated, actor.UserID, map[string]any{
		"application_id": applicationID,
		"applicant_id":   applicantID,
	})
	return updated, nil
}

func (s *shareService) Leave(ctx context.Context, actor *auth.Identity, id string) (*model.RoomShare, error) {
	return s.mutate(ctx, id, model.EventShareLeft, actor, func(share *model.RoomShare) error {
		if actor.UserID == share.InitiatorID {
			return apperrors.Conflict("The initiator cannot leave their own share")
		}
		if !share.IsConfirmedParticipant(actor.UserID) {
			return apperrors.Conflict("You are not a participant of this share")
		}

		setParticipantStatus(share, actor.UserID, model.ParticipantLeft)
		share.RecomputeSharedAmounts()
		return nil
	})
}

func (s *shareService) RemoveParticipant(ctx context.Context, actor *auth.Identity, id string, userID string) (*model.RoomShare, error) {
	return s.mutate(ctx, id, model.EventShareLeft, actor, func(share *model.RoomShare) error {
		if actor.UserID != share.InitiatorID {
			return apperrors.Forbidden("Only the initiator can remove participants")
		}
		if userID == share.InitiatorID {
			return apperrors.Conflict("The initiator cannot be removed from their own share")
		}
		if !share.IsConfirmedParticipant(userID) {
			return apperrors.NotFoundWithID("Participant", userID)
		}

		setParticipantStatus(share, userID, model.ParticipantRemoved)
		share.RecomputeSharedAmounts()
		return nil
	})
}

// MarkInterested is an idempotent toggle of the caller's membership in the
// interested list.
func (s *shareService) MarkInterested(ctx context.Context, actor *auth.Identity, id string) (*model.RoomShare, error) {
	return s.mutate(ctx, id, "", actor, func(share *model.RoomShare) error {
		for i, userID := range share.Interested {
			if userID == actor.UserID {
				share.Interested = append(share.Interested[:i], share.Interested[i+1:]...)
				return nil
			}
		}
		share.Interested = append(share.Interested, actor.UserID)
		return nil
	})
}

func (s *shareService) UpdateStatus(ctx context.Context, actor *auth.Identity, id string, status string, reason string) (*model.RoomShare, error) {
	return s.mutate(ctx, id, model.EventShareStatusChanged, actor, func(share *model.RoomShare) error {
		if actor.UserID != share.InitiatorID {
			return apperrors.Forbidden("Only the initiator can change the share status")
		}
		if !model.CanTransitionShare(share.Status, status) {
			return apperrors.Conflict(fmt.Sprintf("Room share cannot move from %s to %s", share.Status, status))
		}

		share.Status = status
		if status == model.ShareCancelled || status == model.ShareCompleted {
			now := time.Now().UTC()
			share.CompletedAt = &now
			share.CompletionReason = sanitizer.SanitizeFreeText(reason)
		}
		return nil
	})
}

func (s *shareService) AddHouseRules(ctx context.Context, actor *auth.Identity, id string, rules []string) (*model.RoomShare, error) {
	return s.mutate(ctx, id, "", actor, func(share *model.RoomShare) error {
		if actor.UserID != share.InitiatorID {
			return apperrors.Forbidden("Only the initiator can set house rules")
		}
		share.HouseRules = sanitizer.SanitizeFreeTextSlice(rules)
		return nil
	})
}

func (s *shareService) Delete(ctx context.Context, actor *auth.Identity, id string) error {
	share, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if actor.Role != model.RoleAdmin && actor.UserID != share.InitiatorID {
		return apperrors.Forbidden("Only the initiator can delete this share")
	}
	if share.HasConfirmedNonInitiator() {
		return apperrors.Conflict("Room share still has confirmed participants")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, roomsharerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Room share", id)
		}
		return apperrors.Internal("Failed to delete room share", err)
	}

	s.cfg.Log.Info("Room share deleted successfully", "id", id)
	return nil
}

func (s *shareService) MintInvite(ctx context.Context, actor *auth.Identity, id string) (string, error) {
	if s.sealer == nil {
		return "", apperrors.Unavailable("invite links")
	}

	share, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if actor.UserID != share.InitiatorID {
		return "", apperrors.Forbidden("Only the initiator can mint invite links")
	}

	token, err := s.sealer.CreateInviteToken(share.ID, share.RoomID)
	if err != nil {
		s.cfg.Log.Error("Failed to mint invite token", "share_id", id, "error", err)
		return "", apperrors.Internal("Failed to mint invite link", err)
	}
	return token, nil
}

// --- Helpers ---

func (s *shareService) mutate(ctx context.Context, id string, eventAction string, actor *auth.Identity, fn func(*model.RoomShare) error) (*model.RoomShare, error) {
	share, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(share); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, share); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Room share updated successfully", "id", id, "status", share.Status, "version", share.Version)
	if eventAction != "" {
		s.publish(ctx, eventAction, share, actor.UserID, map[string]any{"status": share.Status})
	}
	return share, nil
}

func (s *shareService) load(ctx context.Context, id string) (*model.RoomShare, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room share ID cannot be empty")
	}

	share, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, roomsharerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room share", id)
		}
		if errors.Is(err, roomsharerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid room share ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve room share", err)
	}

	return share, nil
}

func (s *shareService) persist(ctx context.Context, share *model.RoomShare) error {
	if err := s.repo.UpdateWithVersion(ctx, share); err != nil {
		switch {
		case errors.Is(err, roomsharerrors.ErrNotFound):
			return apperrors.NotFoundWithID("Room share", share.ID)
		case errors.Is(err, roomsharerrors.ErrVersionConflict):
			s.cfg.Log.Warn("Room share version conflict", "id", share.ID, "version", share.Version)
			return apperrors.VersionConflict("Room share", share.ID)
		default:
			s.cfg.Log.Error("Failed to update room share", "id", share.ID, "error", err)
			return apperrors.Internal("Failed to update room share", err)
		}
	}
	return nil
}

func (s *shareService) sanitize(share *model.RoomShare) {
	share.Description = sanitizer.SanitizeFreeText(share.Description)
	share.HouseRules = sanitizer.SanitizeFreeTextSlice(share.HouseRules)
	share.Preferences = sanitizer.SanitizePreferences(share.Preferences)
}

// publish carries the initiator ID so the notifier can address application
// and departure events to the right side of the share.
func (s *shareService) publish(ctx context.Context, action string, share *model.RoomShare, actorID string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["initiator_id"] = share.InitiatorID

	event := model.LifecycleEvent{
		EventID:    uuid.NewString(),
		EntityType: "roomshare",
		EntityID:   share.ID,
		Action:     action,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish room share event", "action", action, "share_id", share.ID, "error", err)
	}
}

func setParticipantStatus(share *model.RoomShare, userID string, status string) {
	for i := range share.CurrentParticipants {
		if share.CurrentParticipants[i].UserID == userID && share.CurrentParticipants[i].Status == model.ParticipantConfirmed {
			share.CurrentParticipants[i].Status = status
		}
	}
}
