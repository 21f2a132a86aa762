package validator

import (
	"errors"
	"fmt"
	"strings"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"
	"time"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate          *validator.Validate
	logger            *logger.Logger
	maxDurationMonths int
}

func NewBookingValidator(log *logger.Logger, maxDurationMonths int) *BookingValidator {
	v := validator.New()

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate:          v,
		logger:            log,
		maxDurationMonths: maxDurationMonths,
	}
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if booking.MoveInDate.Before(today) {
		return ValidationErrors{
			ValidationError{
				Field:   "MoveInDate",
				Message: "move_in_date cannot be in the past",
			},
		}
	}

	if booking.Duration > v.maxDurationMonths {
		return ValidationErrors{
			ValidationError{
				Field:   "Duration",
				Message: fmt.Sprintf("duration (%d months) exceeds the maximum of %d months", booking.Duration, v.maxDurationMonths),
			},
		}
	}

	return nil
}

// ValidateExtension checks an extension request against the remaining
// duration headroom.
func (v *BookingValidator) ValidateExtension(booking *model.Booking, months int, maxExtensionMonths int) error {
	if months < 1 {
		return ValidationErrors{
			ValidationError{
				Field:   "Months",
				Message: "extension must be at least 1 month",
			},
		}
	}
	if months > maxExtensionMonths {
		return ValidationErrors{
			ValidationError{
				Field:   "Months",
				Message: fmt.Sprintf("extension (%d months) exceeds the maximum of %d months", months, maxExtensionMonths),
			},
		}
	}
	if booking.Duration+months > v.maxDurationMonths {
		return ValidationErrors{
			ValidationError{
				Field:   "Months",
				Message: fmt.Sprintf("extended duration (%d months) would exceed the maximum of %d months", booking.Duration+months, v.maxDurationMonths),
			},
		}
	}
	return nil
}

// ValidatePayment checks a payment record before it is appended.
func (v *BookingValidator) ValidatePayment(payment model.PaymentRecord) error {
	var errs ValidationErrors
	if payment.Amount <= 0 {
		errs = append(errs, ValidationError{
			Field:   "Amount",
			Message: "payment amount must be positive",
		})
	}
	if strings.TrimSpace(payment.Method) == "" {
		errs = append(errs, ValidationError{
			Field:   "Method",
			Message: "payment method is required",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
