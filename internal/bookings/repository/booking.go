package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "studentnest/internal/bookings/errors"
	"studentnest/pkg/config"
	"studentnest/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindForUser(ctx context.Context, userID string, role model.Role, limit int, offset int64) ([]*model.Booking, error)
	CountForUser(ctx context.Context, userID string, role model.Role) (int64, error)
	UpdateWithVersion(ctx context.Context, booking *model.Booking) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContext cannot be wrapped without breaking transaction semantics, so
// inside a transaction the original context is returned with a no-op cancel.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}

	var booking model.Booking
	err = r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindForUser(ctx context.Context, userID string, role model.Role, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildPartyFilter(userID, role), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountForUser(ctx context.Context, userID string, role model.Role) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildPartyFilter(userID, role))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// buildPartyFilter scopes queries to the caller's side of a booking. Admins
// see everything.
func buildPartyFilter(userID string, role model.Role) bson.M {
	switch role {
	case model.RoleOwner:
		return bson.M{"owner_id": userID}
	case model.RoleAdmin:
		return bson.M{}
	default:
		return bson.M{"student_id": userID}
	}
}

// UpdateWithVersion persists the booking with a compare-and-swap on
// (_id, version). The in-memory version must be the one the mutation was
// computed from; on success the stored document's version is incremented and
// the in-memory copy is advanced to match. A CAS miss on an existing document
// is reported as ErrVersionConflict, never silently retried.
func (r *mongoBookingRepository) UpdateWithVersion(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(booking.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	filter := bson.M{"_id": objectID, "version": booking.Version}
	update := bson.M{
		"$set": bson.M{
			"move_in_date":        booking.MoveInDate,
			"move_out_date":       booking.MoveOutDate,
			"duration":            booking.Duration,
			"agreement_type":      booking.AgreementType,
			"monthly_rent":        booking.MonthlyRent,
			"security_deposit":    booking.SecurityDeposit,
			"maintenance_charges": booking.MaintenanceCharges,
			"total_amount":        booking.TotalAmount,
			"status":              booking.Status,
			"payment_status":      booking.PaymentStatus,
			"amount_paid":         booking.AmountPaid,
			"payments":            booking.Payments,
			"check_in_details":    booking.CheckInDetails,
			"check_out_details":   booking.CheckOutDetails,
			"extension_requests":  booking.ExtensionRequests,
			"cancellation":        booking.Cancellation,
			"student_notes":       booking.StudentNotes,
			"owner_notes":         booking.OwnerNotes,
			"confirmed_at":        booking.ConfirmedAt,
			"rejected_at":         booking.RejectedAt,
			"completed_at":        booking.CompletedAt,
			"cancelled_at":        booking.CancelledAt,
			"updated_at":          booking.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.MatchedCount == 0 {
		exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
		if err != nil {
			return fmt.Errorf("failed to check booking existence: %w", err)
		}
		if exists == 0 {
			return bookingserrors.ErrNotFound
		}
		return fmt.Errorf("%w: %s", bookingserrors.ErrVersionConflict, booking.ID)
	}

	booking.Version++
	return nil
}
