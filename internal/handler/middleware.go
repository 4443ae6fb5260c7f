package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/logging"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// Identity headers set by the upstream auth proxy.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
	HeaderUserStaff = "X-User-Staff"
)

type purchaserKey struct{}

// PurchaserFrom returns the caller identity attached by Identity. Anonymous
// callers get a zero Purchaser.
func PurchaserFrom(ctx context.Context) model.Purchaser {
	p, _ := ctx.Value(purchaserKey{}).(model.Purchaser)
	return p
}

// Identity reads the caller from the proxy headers.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		staff, _ := strconv.ParseBool(r.Header.Get(HeaderUserStaff))
		p := model.Purchaser{
			UserID:      strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Email:       strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
			DisplayName: strings.TrimSpace(r.Header.Get(HeaderUserName)),
			Staff:       staff,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), purchaserKey{}, p)))
	})
}

// Logger writes one access log line per request and exposes the chi request
// id as the correlation id.
func Logger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if id := chimiddleware.GetReqID(ctx); id != "" {
				ctx = logging.ContextWithCorrelationID(ctx, id)
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logging.FromContext(ctx, log).WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			}).Info("request")
		})
	}
}

// CORS allows browser clients on any origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", HeaderUserID, HeaderUserEmail, HeaderUserName, HeaderUserStaff,
		}, ", "))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter mounts every route with the global middleware stack.
func NewRouter(h *EventHandler, health map[string]func(context.Context) error, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(Identity)

	r.Get("/health", HealthCheck(health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Post("/{id}/bookings", h.Book)
	})
	r.Get("/tiers/{id}/availability", h.TierAvailability)
	r.Route("/tickets", func(r chi.Router) {
		r.Post("/verify", h.VerifyTicket)
		r.Get("/{id}/certificate", h.DownloadCertificate)
	})
	return r
}
