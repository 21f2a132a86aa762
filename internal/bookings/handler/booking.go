package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"studentnest/internal/bookings/service"
	"studentnest/pkg/auth"
	apperrors "studentnest/pkg/errors"
	httputil "studentnest/pkg/http"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

// actionRequest is the body of PUT /api/v1/bookings/:id. Action selects the
// operation; the remaining fields are read per action.
type actionRequest struct {
	Action string `json:"action"`

	Reason       string  `json:"reason,omitempty"`
	RefundAmount float64 `json:"refund_amount,omitempty"`

	Details *model.StayDetails `json:"details,omitempty"`

	Months    int    `json:"months,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Approve   bool   `json:"approve,omitempty"`
	Response  string `json:"response,omitempty"`

	Notes string `json:"notes,omitempty"`

	Payment *model.PaymentRecord `json:"payment,omitempty"`
}

type bookingDetail struct {
	Booking     *model.Booking            `json:"booking"`
	Permissions *model.BookingPermissions `json:"permissions"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "Create", apperrors.Unauthorized("Authentication required"))
		return
	}

	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), actor, &booking); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "GetByID", apperrors.Unauthorized("Authentication required"))
		return
	}

	booking, perms, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookingDetail{Booking: booking, Permissions: perms}); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "List", apperrors.Unauthorized("Authentication required"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	bookings, total, err := h.service.ListForCaller(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

// Act dispatches lifecycle actions on a booking.
func (h *BookingHandler) Act(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "Act", apperrors.Unauthorized("Authentication required"))
		return
	}
	id := ps.ByName("id")

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Act", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	var booking *model.Booking
	switch req.Action {
	case "confirm":
		booking, err = h.service.Confirm(r.Context(), actor, id)
	case "reject":
		booking, err = h.service.Reject(r.Context(), actor, id, req.Reason)
	case "cancel":
		booking, err = h.service.Cancel(r.Context(), actor, id, req.Reason, req.RefundAmount)
	case "check_in":
		booking, err = h.service.CheckIn(r.Context(), actor, id, req.Details)
	case "check_out":
		booking, err = h.service.CheckOut(r.Context(), actor, id, req.Details)
	case "complete":
		booking, err = h.service.Complete(r.Context(), actor, id)
	case "request_extension":
		booking, err = h.service.RequestExtension(r.Context(), actor, id, req.Months)
	case "respond_extension":
		booking, err = h.service.RespondExtension(r.Context(), actor, id, req.RequestID, req.Approve, req.Response)
	case "add_notes":
		booking, err = h.service.AddNotes(r.Context(), actor, id, req.Notes)
	case "update_payment":
		if req.Payment == nil {
			err = apperrors.InvalidInput("'payment' is required for action update_payment")
		} else {
			booking, err = h.service.UpdatePayment(r.Context(), actor, id, *req.Payment)
		}
	default:
		err = apperrors.InvalidInput(fmt.Sprintf("unrecognized action: %q", req.Action))
	}

	if err != nil {
		h.writeError(w, "Act", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Act", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.List)
	router.GET("/api/v1/bookings/:id", h.GetByID)
	router.PUT("/api/v1/bookings/:id", h.Act)
}
