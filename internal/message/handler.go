package message

import (
	"fmt"
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

// History handles GET /api/chat/rooms/{roomID}/messages?page=&size=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Forbidden("Unauthorized request"))
		return
	}

	roomID, err := strconv.ParseInt(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil {
		httpx.Error(w, r, h.logger, apperr.Validation("Invalid room id"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil {
		size = defaultPageSize
	}

	res, err := h.service.History(r.Context(), identity.UserID, roomID, page, size)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, res)
}

// MarkRead handles POST /api/chat/rooms/{roomID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Forbidden("Unauthorized request"))
		return
	}

	roomID, err := strconv.ParseInt(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil {
		httpx.Error(w, r, h.logger, apperr.Validation("Invalid room id"))
		return
	}

	updated, err := h.service.MarkRead(r.Context(), identity.UserID, roomID)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	h.logger.Debug().
		Int64("room_id", roomID).
		Int64("reader_id", identity.UserID).
		Int64("updated", updated).
		Msg("marked messages as read")

	httpx.JSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%d messages marked as read", updated),
	})
}
