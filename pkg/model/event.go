package model

import (
	"time"
)

// Lifecycle event actions published to the event bus.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
	EventBookingActive    = "booking.checked_in"
	EventBookingCompleted = "booking.completed"
	EventBookingExtension = "booking.extension_requested"
	EventBookingPayment   = "booking.payment_updated"

	EventShareCreated       = "roomshare.created"
	EventShareApplied       = "roomshare.application_received"
	EventShareAccepted      = "roomshare.application_accepted"
	EventShareDeclined      = "roomshare.application_declined"
	EventShareLeft          = "roomshare.participant_left"
	EventShareStatusChanged = "roomshare.status_changed"
)

// LifecycleEvent is the payload published for every booking and room-share
// transition. Publishing is best-effort; a failed publish never fails the
// originating request.
type LifecycleEvent struct {
	EventID    string         `json:"event_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}
