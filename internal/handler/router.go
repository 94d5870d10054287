package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/auth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps bundles everything NewRouter wires together.
type RouterDeps struct {
	Events         *EventHandler
	Registrations  *RegistrationHandler
	Verifier       *auth.Verifier
	Gatherer       prometheus.Gatherer
	Log            *zap.Logger
	AllowedOrigins []string

	// TrustProxy rewrites RemoteAddr from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter builds the chi router for the whole API.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	if d.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(Logger(d.Log))
	r.Use(CORS(d.AllowedOrigins))

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(d.Verifier))

		r.Route("/events", func(r chi.Router) {
			r.Use(RejectInvalidToken)
			r.Get("/", d.Events.ListEvents)
			r.Get("/{id}", d.Events.GetEvent)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/", d.Events.CreateEvent)
				r.Delete("/", d.Events.ClearEvents)
				r.Put("/{id}", d.Events.UpdateEvent)
				r.Delete("/{id}", d.Events.DeleteEvent)
			})
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", d.Registrations.CreateRegistration)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", d.Registrations.ListRegistrations)
				r.Get("/export", d.Registrations.ExportRegistrations)
			})
		})
	})

	return r
}
