package model

import (
	"time"
)

// RoomShare statuses. cancelled and completed are terminal.
const (
	ShareActive    = "active"
	ShareInactive  = "inactive"
	ShareCancelled = "cancelled"
	ShareCompleted = "completed"
)

// Participant statuses within a share.
const (
	ParticipantConfirmed = "confirmed"
	ParticipantLeft      = "left"
	ParticipantRemoved   = "removed"
)

// Application statuses.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationDeclined = "declined"
)

var shareTransitions = map[string][]string{
	ShareActive:    {ShareInactive, ShareCancelled, ShareCompleted},
	ShareInactive:  {ShareActive, ShareCancelled},
	ShareCancelled: {},
	ShareCompleted: {},
}

func CanTransitionShare(from, to string) bool {
	for _, next := range shareTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type RoomShare struct {
	ID          string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RoomID      string `json:"room_id" bson:"room_id" validate:"required,mongodb"`
	InitiatorID string `json:"initiator_id" bson:"initiator_id" validate:"required"`

	Description string   `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	HouseRules  []string `json:"house_rules,omitempty" bson:"house_rules,omitempty" validate:"omitempty,dive,max=300"`

	MonthlyRent        float64 `json:"monthly_rent" bson:"monthly_rent" validate:"required,gt=0"`
	SecurityDeposit    float64 `json:"security_deposit" bson:"security_deposit" validate:"gte=0"`
	MaintenanceCharges float64 `json:"maintenance_charges" bson:"maintenance_charges" validate:"gte=0"`

	MaxParticipants     int           `json:"max_participants" bson:"max_participants" validate:"required,min=2"`
	CurrentParticipants []Participant `json:"current_participants" bson:"current_participants"`
	Applications        []Application `json:"applications,omitempty" bson:"applications,omitempty"`
	Interested          []string      `json:"interested,omitempty" bson:"interested,omitempty"`

	// Preferences are the initiator's categorical lifestyle answers, scored
	// against applicants when listing shares.
	Preferences map[string]string `json:"preferences,omitempty" bson:"preferences,omitempty"`

	Status           string     `json:"status" bson:"status" validate:"required,oneof=active inactive cancelled completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CompletionReason string     `json:"completion_reason,omitempty" bson:"completion_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`

	// Version is the optimistic-concurrency token, checked on every write.
	Version int64 `json:"version" bson:"version"`
}

type Participant struct {
	UserID       string    `json:"user_id" bson:"user_id"`
	Status       string    `json:"status" bson:"status"`
	JoinedAt     time.Time `json:"joined_at" bson:"joined_at"`
	SharedAmount float64   `json:"shared_amount" bson:"shared_amount"`
}

type Application struct {
	ID          string            `json:"id" bson:"id"`
	ApplicantID string            `json:"applicant_id" bson:"applicant_id"`
	Message     string            `json:"message,omitempty" bson:"message,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty" bson:"preferences,omitempty"`
	Status      string            `json:"status" bson:"status"`
	AppliedAt   time.Time         `json:"applied_at" bson:"applied_at"`
	RespondedAt *time.Time        `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
	Response    string            `json:"response,omitempty" bson:"response,omitempty"`
}

// ConfirmedCount returns the number of confirmed participants, initiator
// included.
func (s *RoomShare) ConfirmedCount() int {
	n := 0
	for _, p := range s.CurrentParticipants {
		if p.Status == ParticipantConfirmed {
			n++
		}
	}
	return n
}

// AvailableSlots is derived and never negative.
func (s *RoomShare) AvailableSlots() int {
	slots := s.MaxParticipants - s.ConfirmedCount()
	if slots < 0 {
		return 0
	}
	return slots
}

// SharedAmountPerParticipant splits the monthly cost evenly across confirmed
// participants. With no confirmed participants the full amount is returned.
func (s *RoomShare) SharedAmountPerParticipant() float64 {
	n := s.ConfirmedCount()
	if n == 0 {
		return s.MonthlyRent + s.MaintenanceCharges
	}
	return (s.MonthlyRent + s.MaintenanceCharges) / float64(n)
}

// RecomputeSharedAmounts updates every confirmed participant's share after a
// join or leave.
func (s *RoomShare) RecomputeSharedAmounts() {
	amount := s.SharedAmountPerParticipant()
	for i := range s.CurrentParticipants {
		if s.CurrentParticipants[i].Status == ParticipantConfirmed {
			s.CurrentParticipants[i].SharedAmount = amount
		}
	}
}

// HasConfirmedNonInitiator reports whether any confirmed participant other
// than the initiator remains. Deletion is blocked while one exists.
func (s *RoomShare) HasConfirmedNonInitiator() bool {
	for _, p := range s.CurrentParticipants {
		if p.Status == ParticipantConfirmed && p.UserID != s.InitiatorID {
			return true
		}
	}
	return false
}

// FindApplication returns the application with the given id, or nil.
func (s *RoomShare) FindApplication(id string) *Application {
	for i := range s.Applications {
		if s.Applications[i].ID == id {
			return &s.Applications[i]
		}
	}
	return nil
}

// HasPendingApplicationFrom reports whether the user already has a pending
// application on this share.
func (s *RoomShare) HasPendingApplicationFrom(userID string) bool {
	for _, a := range s.Applications {
		if a.ApplicantID == userID && a.Status == ApplicationPending {
			return true
		}
	}
	return false
}

// IsConfirmedParticipant reports whether the user is currently confirmed.
func (s *RoomShare) IsConfirmedParticipant(userID string) bool {
	for _, p := range s.CurrentParticipants {
		if p.UserID == userID && p.Status == ParticipantConfirmed {
			return true
		}
	}
	return false
}
