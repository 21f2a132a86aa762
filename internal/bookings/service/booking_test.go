package service

import (
	"context"
	bookingserrors "studentnest/internal/bookings/errors"
	"studentnest/internal/bookings/validator"
	"studentnest/pkg/auth"
	"studentnest/pkg/config"
	apperrors "studentnest/pkg/errors"
	"studentnest/pkg/events"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBookingRepository struct {
	createFunc            func(ctx context.Context, booking *model.Booking) error
	findByIDFunc          func(ctx context.Context, id string) (*model.Booking, error)
	findForUserFunc       func(ctx context.Context, userID string, role model.Role, limit int, offset int64) ([]*model.Booking, error)
	countForUserFunc      func(ctx context.Context, userID string, role model.Role) (int64, error)
	updateWithVersionFunc func(ctx context.Context, booking *model.Booking) error

	capturedBooking *model.Booking
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	m.capturedBooking = booking
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = "65a000000000000000000001"
	booking.Version = 1
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindForUser(ctx context.Context, userID string, role model.Role, limit int, offset int64) ([]*model.Booking, error) {
	if m.findForUserFunc != nil {
		return m.findForUserFunc(ctx, userID, role, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) CountForUser(ctx context.Context, userID string, role model.Role) (int64, error) {
	if m.countForUserFunc != nil {
		return m.countForUserFunc(ctx, userID, role)
	}
	return 0, nil
}

func (m *mockBookingRepository) UpdateWithVersion(ctx context.Context, booking *model.Booking) error {
	m.capturedBooking = booking
	if m.updateWithVersionFunc != nil {
		return m.updateWithVersionFunc(ctx, booking)
	}
	booking.Version++
	return nil
}

type mockRoomFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Room, error)
}

func (m *mockRoomFinder) FindByID(ctx context.Context, id string) (*model.Room, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Room{
		ID:                 id,
		OwnerID:            "owner-1",
		Available:          true,
		MonthlyRent:        10000,
		SecurityDeposit:    20000,
		MaintenanceCharges: 1000,
	}, nil
}

func newTestService(repo *mockBookingRepository, rooms *mockRoomFinder) BookingService {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	cfg := &config.Config{
		Log:                log,
		MaxExtensionMonths: 12,
		MaxDurationMonths:  24,
	}
	return NewBookingService(repo, rooms, validator.NewBookingValidator(log, cfg.MaxDurationMonths), events.NoopPublisher{}, cfg)
}

func student(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: model.RoleStudent}
}

func owner(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: model.RoleOwner}
}

func pendingBooking() *model.Booking {
	return &model.Booking{
		ID:                 "65a000000000000000000001",
		RoomID:             "65a000000000000000000002",
		StudentID:          "student-1",
		OwnerID:            "owner-1",
		MoveInDate:         time.Now().UTC().AddDate(0, 1, 0),
		Duration:           6,
		AgreementType:      "lease",
		MonthlyRent:        10000,
		SecurityDeposit:    20000,
		MaintenanceCharges: 1000,
		TotalAmount:        31000,
		Status:             model.BookingPending,
		PaymentStatus:      model.PaymentUnpaid,
		Version:            3,
	}
}

func withBooking(b *model.Booking) *mockBookingRepository {
	return &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			if id == b.ID {
				copy := *b
				return &copy, nil
			}
			return nil, bookingserrors.ErrNotFound
		},
	}
}

func TestCreate_RequiresStudentRole(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, &mockRoomFinder{})

	err := svc.Create(context.Background(), owner("owner-1"), &model.Booking{})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestCreate_DerivesTotalsAndMoveOutDate(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo, &mockRoomFinder{})

	moveIn := time.Now().UTC().AddDate(0, 1, 0)
	booking := &model.Booking{
		RoomID:        "65a000000000000000000002",
		MoveInDate:    moveIn,
		Duration:      6,
		AgreementType: "lease",
	}

	err := svc.Create(context.Background(), student("student-1"), booking)

	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, booking.Status)
	assert.Equal(t, "student-1", booking.StudentID)
	assert.Equal(t, "owner-1", booking.OwnerID)
	assert.Equal(t, 31000.0, booking.TotalAmount)
	assert.Equal(t, moveIn.AddDate(0, 6, 0), booking.MoveOutDate)
	assert.Equal(t, model.PaymentUnpaid, booking.PaymentStatus)
}

func TestCreate_RoomUnavailable(t *testing.T) {
	rooms := &mockRoomFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, OwnerID: "owner-1", Available: false}, nil
		},
	}
	svc := newTestService(&mockBookingRepository{}, rooms)

	err := svc.Create(context.Background(), student("student-1"), &model.Booking{RoomID: "65a000000000000000000002"})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestConfirm_OwnerMovesPendingToConfirmed(t *testing.T) {
	b := pendingBooking()
	repo := withBooking(b)
	svc := newTestService(repo, &mockRoomFinder{})

	updated, err := svc.Confirm(context.Background(), owner("owner-1"), b.ID)

	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, updated.Status)
	require.NotNil(t, updated.ConfirmedAt)
	assert.Equal(t, int64(4), updated.Version)
}

func TestConfirm_StudentForbidden(t *testing.T) {
	b := pendingBooking()
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	_, err := svc.Confirm(context.Background(), student("student-1"), b.ID)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestConfirm_AlreadyConfirmedConflicts(t *testing.T) {
	b := pendingBooking()
	b.Status = model.BookingConfirmed
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	_, err := svc.Confirm(context.Background(), owner("owner-1"), b.ID)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestCancel_ActiveBookingConflicts(t *testing.T) {
	b := pendingBooking()
	b.Status = model.BookingActive
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	_, err := svc.Cancel(context.Background(), student("student-1"), b.ID, "changed plans", 0)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestCancel_RecordsCancellationAndClampsRefund(t *testing.T) {
	b := pendingBooking()
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	updated, err := svc.Cancel(context.Background(), student("student-1"), b.ID, "changed plans", -500)

	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, updated.Status)
	require.NotNil(t, updated.Cancellation)
	assert.Equal(t, "student-1", updated.Cancellation.CancelledBy)
	assert.Equal(t, 0.0, updated.Cancellation.RefundAmount)
	require.NotNil(t, updated.CancelledAt)
}

func TestCancel_BlankReasonRejected(t *testing.T) {
	b := pendingBooking()
	repo := withBooking(b)
	svc := newTestService(repo, &mockRoomFinder{})

	_, err := svc.Cancel(context.Background(), student("student-1"), b.ID, "   ", 0)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.AsAppError(err).Code)
	assert.Nil(t, repo.capturedBooking)
}

func TestBookingLifecycle_PendingToCompleted(t *testing.T) {
	current := pendingBooking()
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copy := *current
			return &copy, nil
		},
		updateWithVersionFunc: func(ctx context.Context, booking *model.Booking) error {
			booking.Version++
			copy := *booking
			current = &copy
			return nil
		},
	}
	svc := newTestService(repo, &mockRoomFinder{})
	lessor := owner("owner-1")

	updated, err := svc.Confirm(context.Background(), lessor, current.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, updated.Status)

	updated, err = svc.CheckIn(context.Background(), lessor, current.ID, &model.StayDetails{Notes: "keys handed over"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingActive, updated.Status)

	updated, err = svc.CheckOut(context.Background(), lessor, current.ID, &model.StayDetails{Notes: "no damage"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, int64(6), updated.Version)
}

func TestMutate_VersionConflictSurfacesAs409(t *testing.T) {
	b := pendingBooking()
	repo := withBooking(b)
	repo.updateWithVersionFunc = func(ctx context.Context, booking *model.Booking) error {
		return bookingserrors.ErrVersionConflict
	}
	svc := newTestService(repo, &mockRoomFinder{})

	_, err := svc.Confirm(context.Background(), owner("owner-1"), b.ID)

	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeVersionConflict, appErr.Code)
	assert.Equal(t, 409, appErr.StatusCode())
}

func TestCheckOut_StoresDetailsAndCompletes(t *testing.T) {
	b := pendingBooking()
	b.Status = model.BookingActive
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	updated, err := svc.CheckOut(context.Background(), owner("owner-1"), b.ID, &model.StayDetails{
		Notes:        "no damage",
		RefundAmount: 20000,
	})

	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, updated.Status)
	require.NotNil(t, updated.CheckOutDetails)
	assert.Equal(t, 20000.0, updated.CheckOutDetails.RefundAmount)
	require.NotNil(t, updated.CompletedAt)
}

func TestRequestExtension_SecondPendingConflicts(t *testing.T) {
	b := pendingBooking()
	b.Status = model.BookingActive
	b.ExtensionRequests = []model.ExtensionRequest{{
		ID:                "ext-1",
		RequestedDuration: 2,
		Status:            model.ExtensionPending,
		RequestedAt:       time.Now().UTC(),
	}}
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	_, err := svc.RequestExtension(context.Background(), student("student-1"), b.ID, 3)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestRespondExtension_ApprovalExtendsDuration(t *testing.T) {
	b := pendingBooking()
	b.Status = model.BookingActive
	b.ExtensionRequests = []model.ExtensionRequest{{
		ID:                "ext-1",
		RequestedDuration: 3,
		Status:            model.ExtensionPending,
		RequestedAt:       time.Now().UTC(),
	}}
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	updated, err := svc.RespondExtension(context.Background(), owner("owner-1"), b.ID, "ext-1", true, "welcome to stay")

	require.NoError(t, err)
	assert.Equal(t, 9, updated.Duration)
	assert.Equal(t, updated.MoveInDate.AddDate(0, 9, 0), updated.MoveOutDate)
	assert.Equal(t, model.ExtensionApproved, updated.ExtensionRequests[0].Status)
	require.NotNil(t, updated.ExtensionRequests[0].RespondedAt)
}

func TestRespondExtension_DeclineLeavesDuration(t *testing.T) {
	b := pendingBooking()
	b.Status = model.BookingActive
	b.ExtensionRequests = []model.ExtensionRequest{{
		ID:                "ext-1",
		RequestedDuration: 3,
		Status:            model.ExtensionPending,
		RequestedAt:       time.Now().UTC(),
	}}
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	updated, err := svc.RespondExtension(context.Background(), owner("owner-1"), b.ID, "ext-1", false, "room is committed")

	require.NoError(t, err)
	assert.Equal(t, 6, updated.Duration)
	assert.Equal(t, model.ExtensionDeclined, updated.ExtensionRequests[0].Status)
}

func TestUpdatePayment_DerivesPaymentStatus(t *testing.T) {
	b := pendingBooking()
	b.Status = model.BookingConfirmed
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	updated, err := svc.UpdatePayment(context.Background(), student("student-1"), b.ID, model.PaymentRecord{
		Amount: 11000,
		Method: "upi",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartial, updated.PaymentStatus)
	assert.Equal(t, 11000.0, updated.AmountPaid)
	require.Len(t, updated.Payments, 1)
	assert.NotEmpty(t, updated.Payments[0].TransactionID)

	// Second payment crosses the total.
	b.AmountPaid = updated.AmountPaid
	b.Payments = updated.Payments
	b.PaymentStatus = updated.PaymentStatus
	updated, err = svc.UpdatePayment(context.Background(), student("student-1"), b.ID, model.PaymentRecord{
		Amount: 20000,
		Method: "upi",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, updated.PaymentStatus)
}

func TestUpdatePayment_RejectedBookingConflicts(t *testing.T) {
	b := pendingBooking()
	b.Status = model.BookingRejected
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	_, err := svc.UpdatePayment(context.Background(), student("student-1"), b.ID, model.PaymentRecord{
		Amount: 1000,
		Method: "upi",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestAddNotes_WritesOnlyCallersField(t *testing.T) {
	b := pendingBooking()
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	updated, err := svc.AddNotes(context.Background(), owner("owner-1"), b.ID, "keys under the mat")

	require.NoError(t, err)
	assert.Equal(t, "keys under the mat", updated.OwnerNotes)
	assert.Empty(t, updated.StudentNotes)
}

func TestAddNotes_StrangerForbidden(t *testing.T) {
	b := pendingBooking()
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	_, err := svc.AddNotes(context.Background(), student("someone-else"), b.ID, "hi")

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestGetByID_StrangerForbidden(t *testing.T) {
	b := pendingBooking()
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	_, _, err := svc.GetByID(context.Background(), student("someone-else"), b.ID)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestGetByID_ReturnsPermissions(t *testing.T) {
	b := pendingBooking()
	svc := newTestService(withBooking(b), &mockRoomFinder{})

	_, perms, err := svc.GetByID(context.Background(), owner("owner-1"), b.ID)

	require.NoError(t, err)
	require.NotNil(t, perms)
	assert.True(t, perms.CanConfirm)
	assert.True(t, perms.CanReject)
	assert.False(t, perms.CanCheckOut)
}

func TestListForCaller_ScopesToCaller(t *testing.T) {
	var seenUser string
	var seenRole model.Role
	repo := &mockBookingRepository{
		findForUserFunc: func(ctx context.Context, userID string, role model.Role, limit int, offset int64) ([]*model.Booking, error) {
			seenUser = userID
			seenRole = role
			return []*model.Booking{pendingBooking()}, nil
		},
		countForUserFunc: func(ctx context.Context, userID string, role model.Role) (int64, error) {
			return 1, nil
		},
	}
	svc := newTestService(repo, &mockRoomFinder{})

	bookings, total, err := svc.ListForCaller(context.Background(), student("student-1"), 10, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, bookings, 1)
	assert.Equal(t, "student-1", seenUser)
	assert.Equal(t, model.RoleStudent, seenRole)
}
