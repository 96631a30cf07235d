package assistant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mentoji/platform/pkg/logging"
)

// Handler exposes the matching assistant over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the assistant HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("assistant: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the assistant endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/assistant/sessions", h.Start)
	r.Post("/assistant/messages", h.Message)
}

// Start handles POST /assistant/sessions.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.StartSession(r.Context(), req)
	if err != nil {
		h.logger.Error("assistant session start failed", "error", err)
		http.Error(w, "assistant unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

// Message handles POST /assistant/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.SendMessage(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("assistant message failed", "error", err)
		http.Error(w, "assistant unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
