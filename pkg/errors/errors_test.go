package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NotFound("Booking")
	assert.Equal(t, "NOT_FOUND: Booking not found", err.Error())

	cause := errors.New("connection refused")
	wrapped := Internal("Failed to load booking", cause)
	assert.Contains(t, wrapped.Error(), "INTERNAL_ERROR")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, CodeInternal, "something failed", http.StatusInternalServerError)
	assert.True(t, errors.Is(err, cause))
}

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not found", NotFound("Room"), CodeNotFound, http.StatusNotFound},
		{"not found with id", NotFoundWithID("Room", "abc"), CodeNotFound, http.StatusNotFound},
		{"invalid input", InvalidInput("bad id"), CodeInvalidInput, http.StatusBadRequest},
		{"validation", Validation("invalid", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"unauthorized", Unauthorized("no token"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("not your booking"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("share is full"), CodeConflict, http.StatusConflict},
		{"version conflict", VersionConflict("Booking", "abc"), CodeVersionConflict, http.StatusConflict},
		{"timeout", Timeout("took too long"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("MongoDB"), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode())
		})
	}
}

func TestVersionConflict_Details(t *testing.T) {
	err := VersionConflict("RoomShare", "64f000000000000000000001")
	assert.Equal(t, "RoomShare", err.Details["resource"])
	assert.Equal(t, "64f000000000000000000001", err.Details["id"])
}

func TestAsAppError(t *testing.T) {
	appErr := Forbidden("nope")
	assert.Same(t, appErr, AsAppError(appErr))

	plain := errors.New("boom")
	converted := AsAppError(plain)
	assert.Equal(t, CodeInternal, converted.Code)
	assert.True(t, errors.Is(converted, plain))
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(Conflict("x")))
	assert.False(t, IsAppError(errors.New("x")))
}
