// Package notifier consumes booking and room-share lifecycle events and turns
// them into notifications through an EmailSender port. Actual delivery is an
// external collaborator; the default sender logs what would have been sent.
package notifier

import (
	"context"
	"fmt"
	"studentnest/pkg/kafka"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"
)

// EmailSender is the delivery port.
type EmailSender interface {
	Send(ctx context.Context, recipientID, subject, body string) error
}

// LogEmailSender writes notifications to the structured log instead of
// delivering them.
type LogEmailSender struct {
	Log *logger.Logger
}

func (s LogEmailSender) Send(ctx context.Context, recipientID, subject, body string) error {
	s.Log.Info("Notification dispatched",
		"recipient_id", recipientID,
		"subject", subject,
		"body", body,
	)
	return nil
}

type Notifier struct {
	sender EmailSender
	log    *logger.Logger
}

func NewNotifier(sender EmailSender, log *logger.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		log:    log,
	}
}

// Handle is the Kafka message handler for lifecycle event topics.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.LifecycleEvent
	if err := msg.Decode(&event); err != nil {
		return fmt.Errorf("failed to decode lifecycle event: %w", err)
	}

	subject, body, ok := composeNotification(event)
	if !ok {
		n.log.Debug("No notification for event action", "action", event.Action, "event_id", event.EventID)
		return nil
	}

	recipient := resolveRecipient(event)
	if err := n.sender.Send(ctx, recipient, subject, body); err != nil {
		return fmt.Errorf("failed to send notification for event %s: %w", event.EventID, err)
	}

	n.log.Info("Lifecycle event handled",
		"event_id", event.EventID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"action", event.Action,
	)
	return nil
}

// resolveRecipient picks who a notification addresses. Booking events go to
// the counterpart of the acting party; share application outcomes go to the
// applicant, new applications and departures to the initiator. Events with no
// better target fall back to the actor.
func resolveRecipient(event model.LifecycleEvent) string {
	payloadID := func(key string) string {
		if v, ok := event.Payload[key].(string); ok {
			return v
		}
		return ""
	}

	switch event.EntityType {
	case "booking":
		owner := payloadID("owner_id")
		student := payloadID("student_id")
		if event.ActorID == owner && student != "" {
			return student
		}
		if event.ActorID == student && owner != "" {
			return owner
		}
	case "roomshare":
		switch event.Action {
		case model.EventShareAccepted, model.EventShareDeclined:
			if id := payloadID("applicant_id"); id != "" {
				return id
			}
		case model.EventShareApplied, model.EventShareLeft:
			if id := payloadID("initiator_id"); id != "" {
				return id
			}
		}
	}
	return event.ActorID
}

func composeNotification(event model.LifecycleEvent) (subject, body string, ok bool) {
	switch event.Action {
	case model.EventBookingCreated:
		subject = "Booking request received"
	case model.EventBookingConfirmed:
		subject = "Your booking has been confirmed"
	case model.EventBookingRejected:
		subject = "Your booking was rejected"
	case model.EventBookingCancelled:
		subject = "Booking cancelled"
	case model.EventBookingActive:
		subject = "Check-in recorded"
	case model.EventBookingCompleted:
		subject = "Your stay is complete"
	case model.EventBookingExtension:
		subject = "Booking extension update"
	case model.EventBookingPayment:
		subject = "Payment recorded"
	case model.EventShareCreated:
		subject = "Room share listed"
	case model.EventShareApplied:
		subject = "New application on your room share"
	case model.EventShareAccepted:
		subject = "Your room share application was accepted"
	case model.EventShareDeclined:
		subject = "Your room share application was declined"
	case model.EventShareLeft:
		subject = "A participant left your room share"
	case model.EventShareStatusChanged:
		subject = "Room share status changed"
	default:
		return "", "", false
	}

	body = fmt.Sprintf("%s %s: %s", event.EntityType, event.EntityID, event.Action)
	return subject, body, true
}
