package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
)

func NewRouter(h *Handler, health *HealthHandler, logger zerolog.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(requestIDField)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(observeLatency(m))

	r.Get("/health", health.Live)
	r.Get("/health/ready", health.Ready)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout/cod", h.PlaceCOD)
		r.Post("/orders/cod/{pendingOrderId}/verify", h.VerifyCOD)
		r.Patch("/orders/{orderId}/shipment", h.EditShipment)
		r.Post("/shipping/rates", h.ShippingRates)
		r.Get("/shipping/tat", h.DeliveryEstimate)
	})

	return r
}

var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("http request")
})

// requestIDField tags the request logger with chi's request id.
func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

// observeLatency records latency by chi route pattern, so path parameters do
// not explode the label set.
func observeLatency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.ObserveHTTP(route, float64(time.Since(start).Microseconds())/1000)
		})
	}
}
