package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kurokana/SiTeJo-Web/internal/config"
	"github.com/kurokana/SiTeJo-Web/internal/handlers"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/middleware"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/service"
)

// Services bundles what the handlers need.
type Services struct {
	Auth      *service.AuthService
	Tickets   *service.TicketService
	Documents *service.DocumentService
	Users     *service.UserService
	Lecturers *service.LecturerDirectory
	Ready     handlers.ReadinessChecker
}

func New(log zerolog.Logger, svc Services, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Checksum-Blake3"},
		AllowCredentials: true,
	}))
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}

	r.Get("/healthz", handlers.Health())
	r.Get("/readyz", handlers.Ready(log, svc.Ready))
	r.Handle("/metrics", promhttp.Handler())

	ah := handlers.NewAuthHTTP(svc.Auth, log, cfg.IsProduction())
	th := handlers.NewTicketHTTP(svc.Tickets, log)
	rh := handlers.NewReportsHTTP(svc.Tickets, log)
	dh := handlers.NewDocumentHTTP(svc.Documents, log, cfg.MaxUploadBytes)
	uh := handlers.NewUserHTTP(svc.Users, svc.Lecturers, log)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.WithAuth(log, cfg.SessionSecret))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", ah.Register())
			r.Post("/login", ah.Login())
			r.Post("/logout", ah.Logout())
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", ah.Me())
				r.Put("/me", ah.UpdateMe())
				r.Put("/change-password", ah.ChangePassword())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/lecturers", uh.Lecturers())

			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", th.List())
				r.With(middleware.RequireRoles(models.RoleStudent)).Post("/", th.Create())
				r.Get("/statistics", rh.Statistics())
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", th.Get())
					r.Put("/", th.Update())
					r.Delete("/", th.Delete())
					r.Post("/review", th.Transition(lifecycle.ActionReview))
					r.Post("/approve", th.Transition(lifecycle.ActionApprove))
					r.Post("/reject", th.Transition(lifecycle.ActionReject))
					r.Post("/complete", th.Transition(lifecycle.ActionComplete))
					r.Get("/documents", dh.List())
					r.Post("/documents", dh.Upload())
				})
			})

			r.Route("/documents/{id}", func(r chi.Router) {
				r.Get("/download", dh.Download())
				r.Delete("/", dh.Delete())
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireRoles(models.RoleAdmin))
				r.Get("/", uh.List())
				r.Post("/", uh.Create())
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", uh.Get())
					r.Put("/", uh.Update())
					r.Delete("/", uh.Delete())
					r.Patch("/role", uh.UpdateRole())
					r.Patch("/active", uh.SetActive())
				})
			})
		})
	})

	return otelhttp.NewHandler(r, "sitejo-api")
}
