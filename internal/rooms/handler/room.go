package handler

import (
	"encoding/json"
	"net/http"

	"studentnest/internal/rooms/service"
	"studentnest/pkg/auth"
	apperrors "studentnest/pkg/errors"
	httputil "studentnest/pkg/http"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	service service.RoomService
	log     *logger.Logger
}

func NewRoomHandler(service service.RoomService, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		log:     log,
	}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, "Create", apperrors.Unauthorized("Authentication required"))
		return
	}

	var room model.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), actor, &room); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, room); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *RoomHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, room); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	minPrice, err := httputil.ExtractFloat(r, "min_price")
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}
	maxPrice, err := httputil.ExtractFloat(r, "max_price")
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	query := r.URL.Query()
	filter := model.RoomFilter{
		City:          query.Get("city"),
		RoomType:      query.Get("room_type"),
		MinPrice:      minPrice,
		MaxPrice:      maxPrice,
		AvailableOnly: query.Get("available") == "true",
	}

	rooms, total, err := h.service.Search(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WritePaginated(w, rooms, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
	}
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

func (h *RoomHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/rooms", h.Create)
	router.GET("/api/v1/rooms", h.Search)
	router.GET("/api/v1/rooms/:id", h.GetByID)
	router.DELETE("/api/v1/rooms/:id", h.Delete)
}
