package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionBooking(t *testing.T) {
	allowed := [][2]string{
		{BookingPending, BookingConfirmed},
		{BookingPending, BookingRejected},
		{BookingPending, BookingCancelled},
		{BookingConfirmed, BookingActive},
		{BookingConfirmed, BookingCancelled},
		{BookingActive, BookingCompleted},
	}
	for _, edge := range allowed {
		assert.True(t, CanTransitionBooking(edge[0], edge[1]), "%s -> %s should be allowed", edge[0], edge[1])
	}

	disallowed := [][2]string{
		{BookingPending, BookingActive},
		{BookingPending, BookingCompleted},
		{BookingConfirmed, BookingRejected},
		{BookingActive, BookingConfirmed},
		{BookingActive, BookingCancelled},
		{BookingRejected, BookingConfirmed},
		{BookingCompleted, BookingActive},
		{BookingCancelled, BookingPending},
	}
	for _, edge := range disallowed {
		assert.False(t, CanTransitionBooking(edge[0], edge[1]), "%s -> %s should be rejected", edge[0], edge[1])
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []string{BookingPending, BookingConfirmed, BookingRejected, BookingActive, BookingCompleted, BookingCancelled}
	for _, terminal := range []string{BookingRejected, BookingCompleted, BookingCancelled} {
		for _, to := range all {
			assert.False(t, CanTransitionBooking(terminal, to), "%s is terminal, %s -> %s must be rejected", terminal, terminal, to)
		}
	}
}

func TestBooking_ComputeTotalAmount(t *testing.T) {
	b := &Booking{
		MonthlyRent:        8500,
		SecurityDeposit:    17000,
		MaintenanceCharges: 500,
	}
	assert.Equal(t, 26000.0, b.ComputeTotalAmount())
}

func TestBooking_ComputeMoveOutDate(t *testing.T) {
	moveIn := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := &Booking{MoveInDate: moveIn, Duration: 6}
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), b.ComputeMoveOutDate())

	b.Duration = 9
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), b.ComputeMoveOutDate())
}

func TestBooking_PermissionsFor(t *testing.T) {
	b := &Booking{
		OwnerID:   "owner-1",
		StudentID: "student-1",
		Status:    BookingPending,
	}

	ownerPerms := b.PermissionsFor("owner-1")
	assert.True(t, ownerPerms.CanConfirm)
	assert.True(t, ownerPerms.CanReject)
	assert.True(t, ownerPerms.CanCancel)
	assert.False(t, ownerPerms.CanCheckIn)

	studentPerms := b.PermissionsFor("student-1")
	assert.False(t, studentPerms.CanConfirm)
	assert.True(t, studentPerms.CanCancel)
	assert.False(t, studentPerms.CanRequestExtension)

	thirdParty := b.PermissionsFor("someone-else")
	assert.Equal(t, BookingPermissions{}, thirdParty)

	b.Status = BookingActive
	assert.True(t, b.PermissionsFor("student-1").CanRequestExtension)
	assert.True(t, b.PermissionsFor("owner-1").CanCheckOut)
	assert.False(t, b.PermissionsFor("student-1").CanCancel)

	b.ExtensionRequests = []ExtensionRequest{{ID: "ext-1", Status: ExtensionPending}}
	assert.True(t, b.PermissionsFor("owner-1").CanRespondExtension)
	assert.False(t, b.PermissionsFor("student-1").CanRespondExtension)
}

func TestBooking_IsParty(t *testing.T) {
	b := &Booking{OwnerID: "o", StudentID: "s"}
	assert.True(t, b.IsParty("o"))
	assert.True(t, b.IsParty("s"))
	assert.False(t, b.IsParty("x"))
}
