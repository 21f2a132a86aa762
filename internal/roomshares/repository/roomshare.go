package repository

import (
	"context"
	"errors"
	"fmt"
	roomsharerrors "studentnest/internal/roomshares/errors"
	"studentnest/pkg/config"
	mongotx "studentnest/pkg/db/mongo"
	"studentnest/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "RoomShares"
)

// ShareFilter narrows a share listing. Price bounds apply to the monthly rent
// recorded on the share.
type ShareFilter struct {
	City     string
	RoomType string
	MinPrice *float64
	MaxPrice *float64
	// RoomIDs restricts to shares over the given rooms; populated by the
	// service from a room search when city or room-type filters are present.
	RoomIDs []string
}

type mongoShareRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type ShareRepository interface {
	Create(ctx context.Context, share *model.RoomShare) error
	FindByID(ctx context.Context, id string) (*model.RoomShare, error)
	FindActive(ctx context.Context, filter ShareFilter, limit int, offset int64) ([]*model.RoomShare, error)
	CountActive(ctx context.Context, filter ShareFilter) (int64, error)
	UpdateWithVersion(ctx context.Context, share *model.RoomShare) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoShareRepository(cfg *config.Config) ShareRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoShareRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoShareRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoShareRepository) Create(ctx context.Context, share *model.RoomShare) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	share.CreatedAt = now
	share.UpdatedAt = now
	share.Version = 1

	result, err := r.collection.InsertOne(ctx, share)
	if err != nil {
		return fmt.Errorf("failed to create room share: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		share.ID = oid.Hex()
	}
	return nil
}

func (r *mongoShareRepository) FindByID(ctx context.Context, id string) (*model.RoomShare, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", roomsharerrors.ErrInvalidID, id)
	}

	var share model.RoomShare
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&share)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomsharerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find room share: %w", err)
	}

	return &share, nil
}

func (r *mongoShareRepository) FindActive(ctx context.Context, filter ShareFilter, limit int, offset int64) ([]*model.RoomShare, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildActiveFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find room shares: %w", err)
	}
	defer cursor.Close(ctx)

	var shares []*model.RoomShare
	if err = cursor.All(ctx, &shares); err != nil {
		return nil, fmt.Errorf("failed to decode room shares: %w", err)
	}

	return shares, nil
}

func (r *mongoShareRepository) CountActive(ctx context.Context, filter ShareFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildActiveFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count room shares: %w", err)
	}
	return count, nil
}

func buildActiveFilter(f ShareFilter) bson.M {
	filter := bson.M{"status": model.ShareActive}

	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["monthly_rent"] = price
	}
	if f.RoomIDs != nil {
		filter["room_id"] = bson.M{"$in": f.RoomIDs}
	}

	return filter
}

// UpdateWithVersion persists the share with a compare-and-swap on
// (_id, version), incrementing the stored version. A miss on an existing
// document is ErrVersionConflict.
func (r *mongoShareRepository) UpdateWithVersion(ctx context.Context, share *model.RoomShare) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(share.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", roomsharerrors.ErrInvalidID, share.ID)
	}

	share.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	filter := bson.M{"_id": objectID, "version": share.Version}
	update := bson.M{
		"$set": bson.M{
			"description":          share.Description,
			"house_rules":          share.HouseRules,
			"monthly_rent":         share.MonthlyRent,
			"security_deposit":     share.SecurityDeposit,
			"maintenance_charges":  share.MaintenanceCharges,
			"max_participants":     share.MaxParticipants,
			"current_participants": share.CurrentParticipants,
			"applications":         share.Applications,
			"interested":           share.Interested,
			"preferences":          share.Preferences,
			"status":               share.Status,
			"completed_at":         share.CompletedAt,
			"completion_reason":    share.CompletionReason,
			"updated_at":           share.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update room share: %w", err)
	}

	if result.MatchedCount == 0 {
		exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
		if err != nil {
			return fmt.Errorf("failed to check room share existence: %w", err)
		}
		if exists == 0 {
			return roomsharerrors.ErrNotFound
		}
		return fmt.Errorf("%w: %s", roomsharerrors.ErrVersionConflict, share.ID)
	}

	share.Version++
	return nil
}

func (r *mongoShareRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", roomsharerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete room share: %w", err)
	}

	if result.DeletedCount == 0 {
		return roomsharerrors.ErrNotFound
	}

	return nil
}

func (r *mongoShareRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
