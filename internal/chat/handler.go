package chat

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"chat-connect/internal/apperr"
	"chat-connect/internal/httpx"
	"chat-connect/internal/middleware"
)

type Handler struct {
	service *Service
	logger  zerolog.Logger
}

func NewHandler(s *Service, logger zerolog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

// Sidebar handles GET /api/chat/users.
func (h *Handler) Sidebar(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Forbidden("Unauthorized request"))
		return
	}

	summaries, err := h.service.Sidebar(r.Context(), identity.UserID)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, summaries)
}

// GetOrCreateRoom handles POST /api/chat/rooms/{userID}.
func (h *Handler) GetOrCreateRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Forbidden("Unauthorized request"))
		return
	}

	participantID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Error(w, r, h.logger, apperr.Validation("Invalid user id"))
		return
	}

	res, err := h.service.GetOrCreateRoomResponse(r.Context(), identity.UserID, participantID)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, res)
}
