// Package adminapi is the HTTP administrative interface (spec.md §6
// "Administrative interface contract"): a chi.Router with the
// request-id/real-ip/recoverer/timeout middleware stack, bearer-token
// gated route groups, and a promhttp metrics endpoint.
package adminapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barnettlynn/ncamd/internal/logging"
	"github.com/barnettlynn/ncamd/pkg/newcamd"
)

// Dependencies wires the router to the running gateway.
type Dependencies struct {
	Server   *newcamd.Server
	Tokens   *TokenService
	Registry *prometheus.Registry
	Log      *logging.Logger

	// Shutdown and Restart are invoked (on their own goroutine, after the
	// HTTP response is written) by the corresponding admin endpoints.
	Shutdown func()
	Restart  func()
}

// NewRouter builds the admin HTTP handler.
func NewRouter(deps Dependencies) http.Handler {
	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/admin", func(r chi.Router) {
		r.Use(jwtAuth(deps.Tokens))

		r.Get("/clients", h.snapshot)
		r.Post("/clients/{id}/kill", h.killClient)
		r.Post("/reload", h.reload)
		r.Post("/accounts/{username}/reset-counters", h.resetCounters)
		r.Get("/accounts/{username}/counters", h.accountCounters)
		r.Post("/shutdown", h.shutdown)
		r.Post("/restart", h.restart)
	})

	return r
}

func requestLogger(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info(logging.CatAdmin, "%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
