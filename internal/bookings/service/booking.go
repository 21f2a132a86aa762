package service

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "studentnest/internal/bookings/errors"
	"studentnest/internal/bookings/repository"
	"studentnest/internal/bookings/validator"
	roomserrors "studentnest/internal/rooms/errors"
	"studentnest/pkg/auth"
	"studentnest/pkg/config"
	apperrors "studentnest/pkg/errors"
	"studentnest/pkg/events"
	"studentnest/pkg/model"
	"studentnest/pkg/sanitizer"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoomFinder is the slice of the rooms repository the booking service needs
// to validate room references on create.
type RoomFinder interface {
	FindByID(ctx context.Context, id string) (*model.Room, error)
}

type BookingService interface {
	Create(ctx context.Context, actor *auth.Identity, booking *model.Booking) error
	GetByID(ctx context.Context, actor *auth.Identity, id string) (*model.Booking, *model.BookingPermissions, error)
	ListForCaller(ctx context.Context, actor *auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error)
	Confirm(ctx context.Context, actor *auth.Identity, id string) (*model.Booking, error)
	Reject(ctx context.Context, actor *auth.Identity, id string, reason string) (*model.Booking, error)
	Cancel(ctx context.Context, actor *auth.Identity, id string, reason string, refundAmount float64) (*model.Booking, error)
	CheckIn(ctx context.Context, actor *auth.Identity, id string, details *model.StayDetails) (*model.Booking, error)
	CheckOut(ctx context.Context, actor *auth.Identity, id string, details *model.StayDetails) (*model.Booking, error)
	Complete(ctx context.Context, actor *auth.Identity, id string) (*model.Booking, error)
	RequestExtension(ctx context.Context, actor *auth.Identity, id string, months int) (*model.Booking, error)
	RespondExtension(ctx context.Context, actor *auth.Identity, id string, requestID string, approve bool, response string) (*model.Booking, error)
	AddNotes(ctx context.Context, actor *auth.Identity, id string, notes string) (*model.Booking, error)
	UpdatePayment(ctx context.Context, actor *auth.Identity, id string, payment model.PaymentRecord) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	rooms     RoomFinder
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	rooms RoomFinder,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		rooms:     rooms,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, actor *auth.Identity, booking *model.Booking) error {
	if actor.Role != model.RoleStudent {
		return apperrors.Forbidden("Only students can create bookings")
	}

	room, err := s.rooms.FindByID(ctx, booking.RoomID)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) || errors.Is(err, roomserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Room does not exist")
		}
		return apperrors.Internal("Failed to verify room", err)
	}
	if !room.Available {
		return apperrors.Conflict("Room is not available for booking")
	}

	booking.StudentID = actor.UserID
	booking.OwnerID = room.OwnerID
	s.applyDefaults(booking, room)
	s.sanitize(booking)
	if err := s.validate(booking); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"student_id", booking.StudentID,
		"move_in_date", booking.MoveInDate,
	)
	s.publish(ctx, model.EventBookingCreated, booking, actor.UserID, map[string]any{
		"room_id":      booking.RoomID,
		"total_amount": booking.TotalAmount,
	})
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, actor *auth.Identity, id string) (*model.Booking, *model.BookingPermissions, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if actor.Role != model.RoleAdmin && !booking.IsParty(actor.UserID) {
		return nil, nil, apperrors.Forbidden("You are not a party to this booking")
	}

	perms := booking.PermissionsFor(actor.UserID)
	return booking, &perms, nil
}

func (s *bookingService) ListForCaller(ctx context.Context, actor *auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountForUser(ctx, actor.UserID, actor.Role)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "user_id", actor.UserID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindForUser(ctx, actor.UserID, actor.Role, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "user_id", actor.UserID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Confirm(ctx context.Context, actor *auth.Identity, id string) (*model.Booking, error) {
	return s.mutate(ctx, id, model.EventBookingConfirmed, actor, func(b *model.Booking) error {
		if actor.UserID != b.OwnerID {
			return apperrors.Forbidden("Only the room owner can confirm a booking")
		}
		if err := s.transition(b, model.BookingConfirmed); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.ConfirmedAt = &now
		return nil
	})
}

func (s *bookingService) Reject(ctx context.Context, actor *auth.Identity, id string, reason string) (*model.Booking, error) {
	return s.mutate(ctx, id, model.EventBookingRejected, actor, func(b *model.Booking) error {
		if actor.UserID != b.OwnerID {
			return apperrors.Forbidden("Only the room owner can reject a booking")
		}
		if err := s.transition(b, model.BookingRejected); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.RejectedAt = &now
		if reason = sanitizer.SanitizeFreeText(reason); reason != "" {
			b.OwnerNotes = reason
		}
		return nil
	})
}

func (s *bookingService) Cancel(ctx context.Context, actor *auth.Identity, id string, reason string, refundAmount float64) (*model.Booking, error) {
	reason = sanitizer.SanitizeFreeText(reason)
	if reason == "" {
		return nil, apperrors.InvalidInput("A cancellation reason is required")
	}

	return s.mutate(ctx, id, model.EventBookingCancelled, actor, func(b *model.Booking) error {
		if !b.IsParty(actor.UserID) {
			return apperrors.Forbidden("Only the student or the owner can cancel a booking")
		}
		if err := s.transition(b, model.BookingCancelled); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.CancelledAt = &now
		b.Cancellation = &model.Cancellation{
			Reason:       reason,
			CancelledBy:  actor.UserID,
			RefundAmount: max(refundAmount, 0),
		}
		return nil
	})
}

func (s *bookingService) CheckIn(ctx context.Context, actor *auth.Identity, id string, details *model.StayDetails) (*model.Booking, error) {
	return s.mutate(ctx, id, model.EventBookingActive, actor, func(b *model.Booking) error {
		if actor.UserID != b.OwnerID {
			return apperrors.Forbidden("Only the room owner can check a student in")
		}
		if err := s.transition(b, model.BookingActive); err != nil {
			return err
		}
		b.CheckInDetails = stampStayDetails(details)
		return nil
	})
}

// CheckOut records the check-out details and completes the stay in one step.
func (s *bookingService) CheckOut(ctx context.Context, actor *auth.Identity, id string, details *model.StayDetails) (*model.Booking, error) {
	return s.mutate(ctx, id, model.EventBookingCompleted, actor, func(b *model.Booking) error {
		if actor.UserID != b.OwnerID {
			return apperrors.Forbidden("Only the room owner can check a student out")
		}
		if err := s.transition(b, model.BookingCompleted); err != nil {
			return err
		}
		b.CheckOutDetails = stampStayDetails(details)
		now := time.Now().UTC()
		b.CompletedAt = &now
		return nil
	})
}

func (s *bookingService) Complete(ctx context.Context, actor *auth.Identity, id string) (*model.Booking, error) {
	return s.mutate(ctx, id, model.EventBookingCompleted, actor, func(b *model.Booking) error {
		if !b.IsParty(actor.UserID) {
			return apperrors.Forbidden("Only the student or the owner can complete a booking")
		}
		if err := s.transition(b, model.BookingCompleted); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.CompletedAt = &now
		return nil
	})
}

func (s *bookingService) RequestExtension(ctx context.Context, actor *auth.Identity, id string, months int) (*model.Booking, error) {
	return s.mutate(ctx, id, model.EventBookingExtension, actor, func(b *model.Booking) error {
		if actor.UserID != b.StudentID {
			return apperrors.Forbidden("Only the student can request an extension")
		}
		if b.Status != model.BookingActive {
			return apperrors.Conflict("Extensions can only be requested for an active booking")
		}
		if err := s.validator.ValidateExtension(b, months, s.cfg.MaxExtensionMonths); err != nil {
			return apperrors.Validation("Invalid extension request", map[string]any{"error": err.Error()})
		}
		for _, ext := range b.ExtensionRequests {
			if ext.Status == model.ExtensionPending {
				return apperrors.Conflict("An extension request is already pending")
			}
		}
		b.ExtensionRequests = append(b.ExtensionRequests, model.ExtensionRequest{
			ID:                uuid.NewString(),
			RequestedDuration: months,
			Status:            model.ExtensionPending,
			RequestedAt:       time.Now().UTC(),
		})
		return nil
	})
}

func (s *bookingService) RespondExtension(ctx context.Context, actor *auth.Identity, id string, requestID string, approve bool, response string) (*model.Booking, error) {
	return s.mutate(ctx, id, model.EventBookingExtension, actor, func(b *model.Booking) error {
		if actor.UserID != b.OwnerID {
			return apperrors.Forbidden("Only the room owner can respond to an extension request")
		}

		var req *model.ExtensionRequest
		for i := range b.ExtensionRequests {
			if b.ExtensionRequests[i].ID == requestID {
				req = &b.ExtensionRequests[i]
				break
			}
		}
		if req == nil {
			return apperrors.NotFoundWithID("Extension request", requestID)
		}
		if req.Status != model.ExtensionPending {
			return apperrors.Conflict("Extension request has already been responded to")
		}

		now := time.Now().UTC()
		req.RespondedAt = &now
		req.OwnerResponse = sanitizer.SanitizeFreeText(response)
		if approve {
			req.Status = model.ExtensionApproved
			b.Duration += req.RequestedDuration
			b.MoveOutDate = b.ComputeMoveOutDate()
		} else {
			req.Status = model.ExtensionDeclined
		}
		return nil
	})
}

func (s *bookingService) AddNotes(ctx context.Context, actor *auth.Identity, id string, notes string) (*model.Booking, error) {
	return s.mutate(ctx, id, "", actor, func(b *model.Booking) error {
		notes = sanitizer.SanitizeFreeText(notes)
		switch actor.UserID {
		case b.StudentID:
			b.StudentNotes = notes
		case b.OwnerID:
			b.OwnerNotes = notes
		default:
			return apperrors.Forbidden("Only the student or the owner can add notes")
		}
		return nil
	})
}

func (s *bookingService) UpdatePayment(ctx context.Context, actor *auth.Identity, id string, payment model.PaymentRecord) (*model.Booking, error) {
	return s.mutate(ctx, id, model.EventBookingPayment, actor, func(b *model.Booking) error {
		if !b.IsParty(actor.UserID) {
			return apperrors.Forbidden("Only the student or the owner can record a payment")
		}
		if b.Status == model.BookingRejected || b.Status == model.BookingCancelled {
			return apperrors.Conflict(fmt.Sprintf("Payments cannot be recorded on a %s booking", b.Status))
		}
		if err := s.validator.ValidatePayment(payment); err != nil {
			return apperrors.Validation("Invalid payment", map[string]any{"error": err.Error()})
		}

		payment.PaidAt = time.Now().UTC()
		if payment.TransactionID == "" {
			payment.TransactionID = uuid.NewString()
		}
		b.Payments = append(b.Payments, payment)
		b.AmountPaid += payment.Amount

		switch {
		case b.AmountPaid >= b.TotalAmount:
			b.PaymentStatus = model.PaymentPaid
		case b.AmountPaid > 0:
			b.PaymentStatus = model.PaymentPartial
		default:
			b.PaymentStatus = model.PaymentUnpaid
		}
		return nil
	})
}

// --- Helpers ---

// mutate loads the booking, applies fn and persists through the version CAS.
// A CAS miss surfaces as a 409 version conflict. When eventAction is set the
// corresponding lifecycle event is published best-effort after the write.
func (s *bookingService) mutate(ctx context.Context, id string, eventAction string, actor *auth.Identity, fn func(*model.Booking) error) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(booking); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateWithVersion(ctx, booking); err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", id)
		case errors.Is(err, bookingserrors.ErrVersionConflict):
			s.cfg.Log.Warn("Booking version conflict", "id", id, "version", booking.Version)
			return nil, apperrors.VersionConflict("Booking", id)
		default:
			s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to update booking", err)
		}
	}

	s.cfg.Log.Info("Booking updated successfully", "id", id, "status", booking.Status, "version", booking.Version)
	if eventAction != "" {
		s.publish(ctx, eventAction, booking, actor.UserID, map[string]any{"status": booking.Status})
	}
	return booking, nil
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

// transition enforces the status state machine. Disallowed edges leave the
// booking unchanged and surface as a conflict.
func (s *bookingService) transition(b *model.Booking, to string) error {
	if !model.CanTransitionBooking(b.Status, to) {
		return apperrors.Conflict(fmt.Sprintf("Booking cannot move from %s to %s", b.Status, to))
	}
	b.Status = to
	return nil
}

func (s *bookingService) applyDefaults(b *model.Booking, room *model.Room) {
	b.Status = model.BookingPending
	b.PaymentStatus = model.PaymentUnpaid
	b.AmountPaid = 0

	if b.MonthlyRent == 0 {
		b.MonthlyRent = room.MonthlyRent
	}
	if b.SecurityDeposit == 0 {
		b.SecurityDeposit = room.SecurityDeposit
	}
	if b.MaintenanceCharges == 0 {
		b.MaintenanceCharges = room.MaintenanceCharges
	}
	b.TotalAmount = b.ComputeTotalAmount()
	b.MoveOutDate = b.ComputeMoveOutDate()
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.StudentNotes = sanitizer.SanitizeFreeText(b.StudentNotes)
	b.OwnerNotes = sanitizer.SanitizeFreeText(b.OwnerNotes)
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// publish carries both party IDs so the notifier can address the counterpart
// of whoever acted.
func (s *bookingService) publish(ctx context.Context, action string, b *model.Booking, actorID string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["student_id"] = b.StudentID
	payload["owner_id"] = b.OwnerID

	event := model.LifecycleEvent{
		EventID:    uuid.NewString(),
		EntityType: "booking",
		EntityID:   b.ID,
		Action:     action,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "action", action, "booking_id", b.ID, "error", err)
	}
}

func stampStayDetails(details *model.StayDetails) *model.StayDetails {
	if details == nil {
		details = &model.StayDetails{}
	}
	details.Notes = sanitizer.SanitizeFreeText(details.Notes)
	details.DamageAssessment = sanitizer.SanitizeFreeText(details.DamageAssessment)
	details.RecordedAt = time.Now().UTC()
	return details
}
