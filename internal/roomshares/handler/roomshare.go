package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"studentnest/internal/roomshares/service"
	"studentnest/pkg/auth"
	apperrors "studentnest/pkg/errors"
	httputil "studentnest/pkg/http"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// prefParamPrefix marks querying-student preference query parameters on the
// listing endpoint, e.g. pref_sleep_schedule=early.
const prefParamPrefix = "pref_"

type ShareHandler struct {
	service service.ShareService
	log     *logger.Logger
}

func NewShareHandler(service service.ShareService, log *logger.Logger) *ShareHandler {
	return &ShareHandler{
		service: service,
		log:     log,
	}
}

type actionRequest struct {
	Action string `json:"action"`

	Message     string            `json:"message,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`

	ApplicationID string `json:"application_id,omitempty"`
	Accept        bool   `json:"accept,omitempty"`
	Response      string `json:"response,omitempty"`

	UserID string `json:"user_id,omitempty"`

	Status string `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`

	HouseRules []string `json:"house_rules,omitempty"`
}

type inviteApplyRequest struct {
	Token       string            `json:"token"`
	Message     string            `json:"message,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

type inviteResponse struct {
	Token string `json:"token"`
}

type compatibilityResponse struct {
	CompatibilityScore int `json:"compatibility_score"`
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "Create", apperrors.Unauthorized("Authentication required"))
		return
	}

	var share model.RoomShare
	if err := json.NewDecoder(r.Body).Decode(&share); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), actor, &share); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, share); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ShareHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	share, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, share); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

	minPrice, err := httputil.ExtractFloat(r, "min_price")
	if err != nil {
		h.writeError(w, "List", err)
		return
	}
	maxPrice, err := httputil.ExtractFloat(r, "max_price")
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	filter := service.ListFilter{
		City:     query.Get("city"),
		RoomType: query.Get("room_type"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}

	prefs := map[string]string{}
	for key, values := range query {
		if strings.HasPrefix(key, prefParamPrefix) && len(values) > 0 {
			prefs[strings.TrimPrefix(key, prefParamPrefix)] = values[0]
		}
	}

	listings, total, err := h.service.List(r.Context(), actor, filter, prefs, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, listings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

// Act dispatches share actions.
func (h *ShareHandler) Act(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	if req.Action == "calculate_compatibility" {
		score, err := h.service.CalculateCompatibility(r.Context(), id, req.Preferences)
		if err != nil {
			h.writeError(w, "Act", err)
			return
		}
		if err := httputil.WriteSuccess(w, compatibilityResponse{CompatibilityScore: score}); err != nil {
			h.log.Error("failed to write success response", "handler", "Act", "operation", "WriteSuccess", "error", err)
		}
		return
	}

	var share *model.RoomShare
	switch req.Action {
	case "apply":
		share, err = h.service.Apply(r.Context(), actor, id, req.Message, req.Preferences)
	case "respond_application":
		share, err = h.service.RespondApplication(r.Context(), actor, id, req.ApplicationID, req.Accept, req.Response)
	case "leave", "leave_sharing":
		share, err = h.service.Leave(r.Context(), actor, id)
	case "remove_participant":
		share, err = h.service.RemoveParticipant(r.Context(), actor, id, req.UserID)
	case "mark_interested":
		share, err = h.service.MarkInterested(r.Context(), actor, id)
	case "update_status":
		share, err = h.service.UpdateStatus(r.Context(), actor, id, req.Status, req.Reason)
	case "add_house_rules":
		share, err = h.service.AddHouseRules(r.Context(), actor, id, req.HouseRules)
	default:
		err = apperrors.InvalidInput(fmt.Sprintf("unrecognized action: %q", req.Action))
	}

	if err != nil {
		h.writeError(w, "Act", err)
		return
	}

	if err := httputil.WriteSuccess(w, share); err != nil {
		h.log.Error("failed to write success response", "handler", "Act", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "Delete", apperrors.Unauthorized("Authentication required"))
		return
	}

	if err := h.service.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ShareHandler) MintInvite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "MintInvite", apperrors.Unauthorized("Authentication required"))
		return
	}

	token, err := h.service.MintInvite(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MintInvite", err)
		return
	}

	if err := httputil.WriteCreated(w, inviteResponse{Token: token}); err != nil {
		h.log.Error("failed to write created response", "handler", "MintInvite", "operation", "WriteCreated", "error", err)
	}
}

func (h *ShareHandler) ApplyByInvite(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "ApplyByInvite", apperrors.Unauthorized("Authentication required"))
		return
	}

	var req inviteApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ApplyByInvite", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	share, err := h.service.ApplyByInvite(r.Context(), actor, req.Token, req.Message, req.Preferences)
	if err != nil {
		h.writeError(w, "ApplyByInvite", err)
		return
	}

	if err := httputil.WriteSuccess(w, share); err != nil {
		h.log.Error("failed to write success response", "handler", "ApplyByInvite", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShareHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ShareHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/roomshares", h.Create)
	router.GET("/api/v1/roomshares", h.List)
	router.GET("/api/v1/roomshares/:id", h.GetByID)
	router.PUT("/api/v1/roomshares/:id", h.Act)
	router.DELETE("/api/v1/roomshares/:id", h.Delete)
	router.POST("/api/v1/roomshares/:id/invite", h.MintInvite)
	router.POST("/api/v1/invites/apply", h.ApplyByInvite)
}
