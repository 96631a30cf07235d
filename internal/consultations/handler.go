package consultations

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mentoji/platform/internal/bookings"
	"github.com/mentoji/platform/internal/payments"
	"github.com/mentoji/platform/pkg/logging"
)

// Handler exposes the consultation workflow over HTTP.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

// NewHandler creates the consultations HTTP handler.
func NewHandler(o *Orchestrator, logger *logging.Logger) *Handler {
	if o == nil {
		panic("consultations: orchestrator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: o, logger: logger}
}

// RegisterRoutes mounts the consultation endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/consultations", h.Reserve)
	r.Post("/consultations/{id}/intent", h.CreateIntent)
	r.Post("/consultations/{id}/finalize", h.Finalize)
	r.Post("/consultations/{id}/cancel", h.Cancel)
	r.Get("/consultations/{id}", h.Get)
}

type reserveRequest struct {
	ExpertID        string          `json:"expertId"`
	ClientID        string          `json:"clientId"`
	StartTime       time.Time       `json:"startTime"`
	DurationMinutes int             `json:"durationMinutes"`
	PriceCents      int64           `json:"priceCents"`
	Currency        string          `json:"currency"`
	IntakeData      json.RawMessage `json:"intakeData"`
	ContactEmail    string          `json:"contactEmail"`
	ContactName     string          `json:"contactName"`
}

type bookingPayload struct {
	ConsultationID  string    `json:"consultationId"`
	ExpertID        string    `json:"expertId"`
	ClientID        string    `json:"clientId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	PriceCents      int64     `json:"priceCents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	MeetingLink     string    `json:"meetingLink,omitempty"`
}

type paymentPayload struct {
	RecordID        string `json:"recordId"`
	ExternalCharge  string `json:"externalChargeId"`
	AmountCents     int64  `json:"amountCents"`
	Currency        string `json:"currency"`
	ProcessingCents int64  `json:"processingFeeCents"`
	PlatformCents   int64  `json:"platformFeeCents"`
	PayoutCents     int64  `json:"payeePayoutCents"`
	Status          string `json:"status"`
}

type finalizeRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type finalizeData struct {
	ConsultationID string          `json:"consultationId"`
	Payment        *paymentPayload `json:"payment"`
	MeetingURL     string          `json:"meetingUrl"`
	Status         StepStatus      `json:"status"`
}

// finalizeResponse is the fixed wire contract for the finalize operation.
// criticalError is set only for the charge-captured-but-unconfirmed failure;
// in that case paymentIntentId and consultationId ride at the top level so
// operators can reconcile from the error payload alone.
type finalizeResponse struct {
	Success         bool          `json:"success"`
	Data            *finalizeData `json:"data,omitempty"`
	Error           string        `json:"error,omitempty"`
	CriticalError   bool          `json:"criticalError,omitempty"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	ConsultationID  string        `json:"consultationId,omitempty"`
}

type cancelRequest struct {
	CancelledBy string `json:"cancelledBy"`
	Reason      string `json:"reason"`
	Refund      bool   `json:"refund"`
}

type cancelResponse struct {
	Success      bool            `json:"success"`
	Data         *bookingPayload `json:"data,omitempty"`
	RefundID     string          `json:"refundId,omitempty"`
	RefundFailed bool            `json:"refundFailed,omitempty"`
	Error        string          `json:"error,omitempty"`
}

type intentResponse struct {
	Success      bool   `json:"success"`
	IntentID     string `json:"intentId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	AmountCents  int64  `json:"amountCents,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Reserve handles POST /consultations.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, finalizeResponse{Error: "invalid request body"})
		return
	}

	expertID, err := uuid.Parse(req.ExpertID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, finalizeResponse{Error: "invalid expertId"})
		return
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, finalizeResponse{Error: "invalid clientId"})
		return
	}

	booking, err := h.orchestrator.Reserve(r.Context(), &bookings.ReserveRequest{
		ExpertID:        expertID,
		ClientID:        clientID,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Currency:        req.Currency,
		IntakeData:      req.IntakeData,
		ContactEmail:    req.ContactEmail,
		ContactName:     req.ContactName,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Success bool           `json:"success"`
		Data    bookingPayload `json:"data"`
	}{Success: true, Data: toBookingPayload(booking)})
}

// CreateIntent handles POST /consultations/{id}/intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	intent, booking, err := h.orchestrator.CreateIntent(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, intentResponse{
		Success:      true,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  booking.PriceCents,
		Currency:     booking.Currency,
	})
}

// Finalize handles POST /consultations/{id}/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, finalizeResponse{Error: "invalid request body"})
		return
	}
	if req.PaymentIntentID == "" {
		writeJSON(w, http.StatusBadRequest, finalizeResponse{Error: "paymentIntentId is required"})
		return
	}

	result, err := h.orchestrator.Finalize(r.Context(), FinalizeRequest{
		BookingID:       bookingID,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		var critical *CriticalInconsistencyError
		if errors.As(err, &critical) {
			writeJSON(w, http.StatusInternalServerError, finalizeResponse{
				Error:           critical.Error(),
				CriticalError:   true,
				PaymentIntentID: critical.PaymentIntentID,
				ConsultationID:  critical.BookingID.String(),
			})
			return
		}
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, finalizeResponse{
		Success: true,
		Data: &finalizeData{
			ConsultationID: result.Booking.ID.String(),
			Payment:        toPaymentPayload(result.Payment),
			MeetingURL:     result.MeetingURL,
			Status:         result.Status,
		},
	})
}

// Cancel handles POST /consultations/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, cancelResponse{Error: "invalid request body"})
		return
	}

	result, err := h.orchestrator.Cancel(r.Context(), CancelRequest{
		BookingID:   bookingID,
		CancelledBy: req.CancelledBy,
		Reason:      req.Reason,
		Refund:      req.Refund,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload := toBookingPayload(result.Booking)
	writeJSON(w, http.StatusOK, cancelResponse{
		Success:      true,
		Data:         &payload,
		RefundID:     result.RefundID,
		RefundFailed: result.RefundFailed,
	})
}

// Get handles GET /consultations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	booking, err := h.orchestrator.ledger.Get(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool           `json:"success"`
		Data    bookingPayload `json:"data"`
	}{Success: true, Data: toBookingPayload(booking)})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, finalizeResponse{Error: "invalid consultation id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case bookings.IsValidationError(err):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, bookings.ErrSlotConflict),
		errors.Is(err, bookings.ErrAlreadyConfirmed),
		errors.Is(err, bookings.ErrAlreadyCancelled):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, bookings.ErrBookingNotFound),
		errors.Is(err, payments.ErrRecordNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, payments.ErrChargeNotSucceeded),
		errors.Is(err, payments.ErrIntentBookingMismatch):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, payments.ErrProcessorUnavailable):
		status = http.StatusBadGateway
		msg = "payment processor unavailable"
	default:
		h.logger.Error("request failed", "error", err)
	}

	writeJSON(w, status, finalizeResponse{Error: msg})
}

func toBookingPayload(b *bookings.Booking) bookingPayload {
	return bookingPayload{
		ConsultationID:  b.ID.String(),
		ExpertID:        b.ExpertID.String(),
		ClientID:        b.ClientID.String(),
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		DurationMinutes: b.DurationMinutes,
		PriceCents:      b.PriceCents,
		Currency:        b.Currency,
		Status:          string(b.Status),
		MeetingLink:     b.MeetingLink,
	}
}

func toPaymentPayload(rec *payments.Record) *paymentPayload {
	if rec == nil {
		return nil
	}
	return &paymentPayload{
		RecordID:        rec.ID.String(),
		ExternalCharge:  rec.ExternalChargeID,
		AmountCents:     rec.AmountCents,
		Currency:        rec.Currency,
		ProcessingCents: rec.ProcessingFeeCents,
		PlatformCents:   rec.PlatformFeeCents,
		PayoutCents:     rec.PayeePayoutCents,
		Status:          rec.Status,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
