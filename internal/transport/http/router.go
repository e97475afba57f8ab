package http

import (
	"net/http"
	"time"

	"secureguard/internal/netutil"
	obsmw "secureguard/internal/observability/middleware"
	"secureguard/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Auth      service.AuthService
	Tokens    service.TokenService
	Devices   service.DeviceService
	Locations service.LocationService
	Commands  service.CommandService
}

type Options struct {
	TrustProxy        bool
	CORSOrigins       []string
	PublicRateLimit   int           // requests per minute per client IP on unauthenticated routes
	RequestTimeout    time.Duration // zero disables the per-request timeout
	LocationListLimit int
	Metrics           http.Handler // defaults to promhttp.Handler()
}

type handler struct {
	auth      service.AuthService
	tokens    service.TokenService
	devices   service.DeviceService
	locations service.LocationService
	commands  service.CommandService
	opts      Options
}

func NewRouter(svc Services, opts Options) http.Handler {
	if opts.LocationListLimit <= 0 {
		opts.LocationListLimit = 100
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	h := &handler{
		auth:      svc.Auth,
		tokens:    svc.Tokens,
		devices:   svc.Devices,
		locations: svc.Locations,
		commands:  svc.Commands,
		opts:      opts,
	}

	r := chi.NewRouter()
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.WithMetrics)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: originsOrAny(opts.CORSOrigins),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Trace-ID"},
		MaxAge:         300,
	}))
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", opts.Metrics)

	public := h.publicLimiter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(public).Post("/register", h.register)
			r.With(public).Post("/login", h.login)
			r.Group(func(r chi.Router) {
				r.Use(h.requireSession)
				r.Get("/profile", h.profile)
				r.Put("/profile", h.updateProfile)
				r.Post("/change-password", h.changePassword)
			})
		})

		// device-originated, authenticated by deviceId only
		r.With(public).Post("/locations", h.recordLocation)

		r.Route("/devices", func(r chi.Router) {
			r.With(public, h.optionalSession).Post("/", h.enrollDevice)
			r.With(h.requireSession).Get("/", h.listDevices)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.requireSession, h.ownedDevice)
				r.Get("/", h.getDevice)
				r.Put("/", h.updateDevice)
				r.Delete("/", h.deleteDevice)
				r.Get("/locations", h.listLocations)
				r.Get("/locations/latest", h.latestLocation)
				r.Get("/commands", h.listCommands)
				r.Post("/commands", h.dispatchCommand)
			})
		})
	})

	return r
}

// publicLimiter keys on the same client address the handlers log, so
// X-Forwarded-For is honoured only when the deployment trusts its proxy.
func (h *handler) publicLimiter() func(http.Handler) http.Handler {
	if h.opts.PublicRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	trustProxy := h.opts.TrustProxy
	return httprate.Limit(h.opts.PublicRateLimit, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return netutil.ClientIP(r, trustProxy), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
		}),
	)
}

func originsOrAny(in []string) []string {
	if len(in) == 0 {
		return []string{"*"}
	}
	return in
}
