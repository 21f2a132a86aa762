package validator

import (
	"errors"
	"fmt"
	"strings"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"

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

type ShareValidator struct {
	validate        *validator.Validate
	logger          *logger.Logger
	minParticipants int
	maxParticipants int
}

func NewShareValidator(log *logger.Logger, minParticipants, maxParticipants int) *ShareValidator {
	return &ShareValidator{
		validate:        validator.New(),
		logger:          log,
		minParticipants: minParticipants,
		maxParticipants: maxParticipants,
	}
}

func (v *ShareValidator) Validate(share *model.RoomShare) error {
	if err := v.validate.Struct(share); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if share.MaxParticipants < v.minParticipants || share.MaxParticipants > v.maxParticipants {
		return ValidationErrors{
			ValidationError{
				Field:   "MaxParticipants",
				Message: fmt.Sprintf("max_participants must be between %d and %d", v.minParticipants, v.maxParticipants),
			},
		}
	}

	return nil
}

func (v *ShareValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
