package model

import (
	"time"
)

// Booking statuses. Transitions are monotonic and restricted to the edges in
// bookingTransitions; rejected, completed and cancelled are terminal.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingRejected  = "rejected"
	BookingActive    = "active"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Payment statuses derived from the running paid total.
const (
	PaymentUnpaid  = "unpaid"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

// Extension request statuses.
const (
	ExtensionPending  = "pending"
	ExtensionApproved = "approved"
	ExtensionDeclined = "declined"
)

var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingRejected, BookingCancelled},
	BookingConfirmed: {BookingActive, BookingCancelled},
	BookingActive:    {BookingCompleted},
	BookingRejected:  {},
	BookingCompleted: {},
	BookingCancelled: {},
}

// CanTransitionBooking reports whether moving a booking from one status to
// another follows an allowed edge.
func CanTransitionBooking(from, to string) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RoomID    string `json:"room_id" bson:"room_id" validate:"required,mongodb"`
	StudentID string `json:"student_id" bson:"student_id" validate:"required"`
	OwnerID   string `json:"owner_id" bson:"owner_id" validate:"required"`

	MoveInDate    time.Time `json:"move_in_date" bson:"move_in_date" validate:"required"`
	MoveOutDate   time.Time `json:"move_out_date" bson:"move_out_date"`
	Duration      int       `json:"duration" bson:"duration" validate:"required,min=1"`
	AgreementType string    `json:"agreement_type" bson:"agreement_type" validate:"required,oneof=lease license monthly"`

	MonthlyRent        float64 `json:"monthly_rent" bson:"monthly_rent" validate:"required,gt=0"`
	SecurityDeposit    float64 `json:"security_deposit" bson:"security_deposit" validate:"gte=0"`
	MaintenanceCharges float64 `json:"maintenance_charges" bson:"maintenance_charges" validate:"gte=0"`
	TotalAmount        float64 `json:"total_amount" bson:"total_amount"`

	Status        string          `json:"status" bson:"status" validate:"required,oneof=pending confirmed rejected active completed cancelled"`
	PaymentStatus string          `json:"payment_status" bson:"payment_status" validate:"omitempty,oneof=unpaid partial paid"`
	AmountPaid    float64         `json:"amount_paid" bson:"amount_paid"`
	Payments      []PaymentRecord `json:"payments,omitempty" bson:"payments,omitempty"`

	CheckInDetails    *StayDetails       `json:"check_in_details,omitempty" bson:"check_in_details,omitempty"`
	CheckOutDetails   *StayDetails       `json:"check_out_details,omitempty" bson:"check_out_details,omitempty"`
	ExtensionRequests []ExtensionRequest `json:"extension_requests,omitempty" bson:"extension_requests,omitempty"`
	Cancellation      *Cancellation      `json:"cancellation,omitempty" bson:"cancellation,omitempty"`

	// Per-role free-text notes. Each party writes only its own field.
	StudentNotes string `json:"student_notes,omitempty" bson:"student_notes,omitempty"`
	OwnerNotes   string `json:"owner_notes,omitempty" bson:"owner_notes,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`

	// Version is the optimistic-concurrency token. Every write is a
	// compare-and-swap on (_id, version); a miss is a 409, never a silent
	// last-write-wins.
	Version int64 `json:"version" bson:"version"`
}

type PaymentRecord struct {
	Amount        float64   `json:"amount" bson:"amount"`
	Method        string    `json:"method" bson:"method"`
	TransactionID string    `json:"transaction_id" bson:"transaction_id"`
	PaidAt        time.Time `json:"paid_at" bson:"paid_at"`
}

type StayDetails struct {
	Photos           []string  `json:"photos,omitempty" bson:"photos,omitempty"`
	Notes            string    `json:"notes,omitempty" bson:"notes,omitempty"`
	DamageAssessment string    `json:"damage_assessment,omitempty" bson:"damage_assessment,omitempty"`
	RefundAmount     float64   `json:"refund_amount,omitempty" bson:"refund_amount,omitempty"`
	RecordedAt       time.Time `json:"recorded_at" bson:"recorded_at"`
}

type ExtensionRequest struct {
	ID                string     `json:"id" bson:"id"`
	RequestedDuration int        `json:"requested_duration" bson:"requested_duration"`
	Status            string     `json:"status" bson:"status"`
	OwnerResponse     string     `json:"owner_response,omitempty" bson:"owner_response,omitempty"`
	RequestedAt       time.Time  `json:"requested_at" bson:"requested_at"`
	RespondedAt       *time.Time `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
}

type Cancellation struct {
	Reason      string  `json:"reason" bson:"reason"`
	CancelledBy string  `json:"cancelled_by" bson:"cancelled_by"`
	// RefundAmount is recorded as supplied by the caller. No cancellation
	// policy exists to derive it from.
	RefundAmount float64 `json:"refund_amount" bson:"refund_amount"`
}

// ComputeTotalAmount derives the booking total from its cost components.
func (b *Booking) ComputeTotalAmount() float64 {
	return b.MonthlyRent + b.SecurityDeposit + b.MaintenanceCharges
}

// ComputeMoveOutDate derives the move-out date from the move-in date and the
// current duration in months.
func (b *Booking) ComputeMoveOutDate() time.Time {
	return b.MoveInDate.AddDate(0, b.Duration, 0)
}

// IsParty reports whether the given user is the booking's student or owner.
func (b *Booking) IsParty(userID string) bool {
	return userID == b.StudentID || userID == b.OwnerID
}

// BookingPermissions is the per-caller action map returned with a booking
// detail, computed from the caller's relationship to the booking and the
// current status.
type BookingPermissions struct {
	CanConfirm          bool `json:"can_confirm"`
	CanReject           bool `json:"can_reject"`
	CanCancel           bool `json:"can_cancel"`
	CanCheckIn          bool `json:"can_check_in"`
	CanCheckOut         bool `json:"can_check_out"`
	CanComplete         bool `json:"can_complete"`
	CanRequestExtension bool `json:"can_request_extension"`
	CanRespondExtension bool `json:"can_respond_extension"`
	CanAddNotes         bool `json:"can_add_notes"`
	CanUpdatePayment    bool `json:"can_update_payment"`
}

func (b *Booking) PermissionsFor(userID string) BookingPermissions {
	isOwner := userID == b.OwnerID
	isStudent := userID == b.StudentID
	isParty := isOwner || isStudent

	hasPendingExtension := false
	for _, ext := range b.ExtensionRequests {
		if ext.Status == ExtensionPending {
			hasPendingExtension = true
			break
		}
	}

	return BookingPermissions{
		CanConfirm:          isOwner && b.Status == BookingPending,
		CanReject:           isOwner && b.Status == BookingPending,
		CanCancel:           isParty && (b.Status == BookingPending || b.Status == BookingConfirmed),
		CanCheckIn:          isOwner && b.Status == BookingConfirmed,
		CanCheckOut:         isOwner && b.Status == BookingActive,
		CanComplete:         isParty && b.Status == BookingActive,
		CanRequestExtension: isStudent && b.Status == BookingActive,
		CanRespondExtension: isOwner && hasPendingExtension,
		CanAddNotes:         isParty,
		CanUpdatePayment:    isParty && b.Status != BookingRejected && b.Status != BookingCancelled,
	}
}
