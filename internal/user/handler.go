package user

import (
	"encoding/json"
	"net/http"

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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, h.logger, apperr.Validation("Malformed request body"))
		return
	}

	u, err := h.service.Register(r.Context(), &req)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	h.logger.Info().Int64("user_id", u.ID).Str("email", u.Email).Msg("user registered")
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, h.logger, apperr.Validation("Malformed request body"))
		return
	}

	res, err := h.service.Login(r.Context(), &req)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Forbidden("Unauthorized request"))
		return
	}

	u, err := h.service.GetByID(r.Context(), identity.UserID)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Forbidden("Unauthorized request"))
		return
	}

	var req ProfileImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, h.logger, apperr.Validation("Malformed request body"))
		return
	}

	u, err := h.service.UpdateProfileImage(r.Context(), identity.UserID, &req)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, u)
}
