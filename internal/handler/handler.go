// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/logging"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/service"
)

// EventHandler holds all HTTP handlers for the booking API.
type EventHandler struct {
	svc *service.BookingService
	log logrus.FieldLogger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.BookingService, log logrus.FieldLogger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps domain errors onto status codes.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrCapacityExceeded), errors.Is(err, model.ErrBookingClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrPaymentDeclined):
		writeError(w, http.StatusPaymentRequired, "payment was declined")
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "you may not access this ticket")
	default:
		logging.FromContext(r.Context(), h.log).WithError(err).
			WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type tierView struct {
	model.TicketTier
	Available int `json:"available"`
}

type eventView struct {
	model.Event
	Tiers []tierView `json:"tiers"`
}

func newEventView(e model.Event) eventView {
	v := eventView{Event: e, Tiers: make([]tierView, 0, len(e.Tiers))}
	for _, t := range e.Tiers {
		v.Tiers = append(v.Tiers, tierView{TicketTier: t, Available: t.Available()})
	}
	return v
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventView(event))
}

// TierAvailability handles GET /tiers/{id}/availability
func (h *EventHandler) TierAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	available, err := h.svc.Available(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tier_id": id, "available": available})
}

// Book handles POST /events/{id}/bookings
// Reserves seats and issues a ticket. Best-effort failures after the ticket
// is stored come back as warnings on a 201.
func (h *EventHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req model.BookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Book(r.Context(), PurchaserFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// DownloadCertificate handles GET /tickets/{id}/certificate
func (h *EventHandler) DownloadCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.svc.DownloadCertificate(r.Context(), chi.URLParam(r, "id"), PurchaserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(cert.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cert.Content)
}

type verifyResponse struct {
	Valid    bool         `json:"valid"`
	Ticket   model.Ticket `json:"ticket"`
	Event    string       `json:"event"`
	Tier     string       `json:"tier"`
	Attendee string       `json:"attendee"`
}

// VerifyTicket handles POST /tickets/verify
func (h *EventHandler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	d, err := h.svc.VerifyTicket(r.Context(), req.Payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Valid:    true,
		Ticket:   d.Ticket,
		Event:    d.Event.Title,
		Tier:     d.Tier.Name,
		Attendee: d.RecipientName(),
	})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health. Every check must pass for a 200.
func HealthCheck(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		writeJSON(w, code, status)
	}
}
