package consultations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentoji/platform/internal/bookings"
)

func newTestServer(t *testing.T, h *testHarness) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(h.orch, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHandlerReserveAndFinalize(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/consultations", map[string]any{
		"expertId":        uuid.NewString(),
		"clientId":        uuid.NewString(),
		"startTime":       time.Date(2025, 6, 24, 10, 0, 0, 0, time.UTC),
		"durationMinutes": 30,
		"priceCents":      10000,
		"currency":        "usd",
		"contactEmail":    "client@example.com",
		"contactName":     "Client",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reserved struct {
		Success bool `json:"success"`
		Data    struct {
			ConsultationID string `json:"consultationId"`
			Status         string `json:"status"`
		} `json:"data"`
	}
	decodeBody(t, resp, &reserved)
	assert.True(t, reserved.Success)
	assert.Equal(t, "pending", reserved.Data.Status)

	resp = postJSON(t, fmt.Sprintf("%s/consultations/%s/finalize", srv.URL, reserved.Data.ConsultationID),
		map[string]string{"paymentIntentId": "pi_test_1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var finalized finalizeResponse
	decodeBody(t, resp, &finalized)
	assert.True(t, finalized.Success)
	require.NotNil(t, finalized.Data)
	assert.Equal(t, reserved.Data.ConsultationID, finalized.Data.ConsultationID)
	assert.NotEmpty(t, finalized.Data.MeetingURL)
	assert.True(t, finalized.Data.Status.PaymentConfirmed)
	assert.True(t, finalized.Data.Status.ConsultationConfirmed)
	require.NotNil(t, finalized.Data.Payment)
	assert.Equal(t, int64(9680), finalized.Data.Payment.PayoutCents)
	assert.False(t, finalized.CriticalError)
}

func TestHandlerReserveValidationFailure(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/consultations", map[string]any{
		"expertId":        uuid.NewString(),
		"clientId":        uuid.NewString(),
		"startTime":       time.Date(2025, 6, 24, 10, 0, 0, 0, time.UTC),
		"durationMinutes": 0,
		"priceCents":      10000,
		"contactEmail":    "client@example.com",
		"contactName":     "Client",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerReserveConflictReturns409(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	expertID := uuid.NewString()
	body := map[string]any{
		"expertId":        expertID,
		"clientId":        uuid.NewString(),
		"startTime":       time.Date(2025, 6, 24, 10, 0, 0, 0, time.UTC),
		"durationMinutes": 30,
		"priceCents":      10000,
		"contactEmail":    "client@example.com",
		"contactName":     "Client",
	}
	resp := postJSON(t, srv.URL+"/consultations", body)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/consultations", body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandlerFinalizeCriticalInconsistencyWireShape(t *testing.T) {
	h := newHarness(t)
	h.ledger.confirmErr = errors.New("write timeout")
	srv := newTestServer(t, h)

	booking, err := h.orch.Reserve(context.Background(), reserveReq(uuid.New(), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	resp := postJSON(t, fmt.Sprintf("%s/consultations/%s/finalize", srv.URL, booking.ID),
		map[string]string{"paymentIntentId": "pi_crit_1"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body finalizeResponse
	decodeBody(t, resp, &body)
	assert.False(t, body.Success)
	assert.True(t, body.CriticalError)
	assert.Equal(t, "pi_crit_1", body.PaymentIntentID)
	assert.Equal(t, booking.ID.String(), body.ConsultationID)
	assert.NotEmpty(t, body.Error)
	assert.Nil(t, body.Data)
}

func TestHandlerFinalizeTwiceReturns409(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	booking, err := h.orch.Reserve(context.Background(), reserveReq(uuid.New(), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	url := fmt.Sprintf("%s/consultations/%s/finalize", srv.URL, booking.ID)
	resp := postJSON(t, url, map[string]string{"paymentIntentId": "pi_test_1"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, url, map[string]string{"paymentIntentId": "pi_test_1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandlerFinalizeUnknownBookingReturns404(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	resp := postJSON(t, fmt.Sprintf("%s/consultations/%s/finalize", srv.URL, uuid.NewString()),
		map[string]string{"paymentIntentId": "pi_test_1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerFinalizeMissingIntentReturns400(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	resp := postJSON(t, fmt.Sprintf("%s/consultations/%s/finalize", srv.URL, uuid.NewString()),
		map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerCancelWithRefund(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	booking, err := h.orch.Reserve(context.Background(), reserveReq(uuid.New(), time.Now().Add(time.Hour)))
	require.NoError(t, err)
	_, err = h.orch.Finalize(context.Background(), FinalizeRequest{BookingID: booking.ID, PaymentIntentID: "pi_test_1"})
	require.NoError(t, err)

	resp := postJSON(t, fmt.Sprintf("%s/consultations/%s/cancel", srv.URL, booking.ID),
		map[string]any{"cancelledBy": "client", "reason": "travel", "refund": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body cancelResponse
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "re_test_1", body.RefundID)
	require.NotNil(t, body.Data)
	assert.Equal(t, string(bookings.StatusCancelled), body.Data.Status)
}

func TestHandlerCreateIntent(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	booking, err := h.orch.Reserve(context.Background(), reserveReq(uuid.New(), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	resp := postJSON(t, fmt.Sprintf("%s/consultations/%s/intent", srv.URL, booking.ID), map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body intentResponse
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "pi_test_1", body.IntentID)
	assert.Equal(t, int64(10000), body.AmountCents)
}

func TestHandlerGetConsultation(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	booking, err := h.orch.Reserve(context.Background(), reserveReq(uuid.New(), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("%s/consultations/%s", srv.URL, booking.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool           `json:"success"`
		Data    bookingPayload `json:"data"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, booking.ID.String(), body.Data.ConsultationID)
}

func TestHandlerInvalidIDReturns400(t *testing.T) {
	h := newHarness(t)
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/consultations/not-a-uuid/finalize",
		map[string]string{"paymentIntentId": "pi_test_1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
