package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reign/internal/admin"
	"reign/internal/auth"
	"reign/internal/config"
	"reign/internal/docsync"
	"reign/internal/http/handler"
	mw "reign/internal/http/middleware"
	"reign/internal/logging"
)

type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	JWT      *auth.JWT
	Users    auth.Users
	Docs     *docsync.Service
	Admin    *admin.Service
	Registry *prometheus.Registry
}

func NewRouter(d Deps) (http.Handler, error) {
	log := logging.OrNop(d.Logger)
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(log))
	r.Use(chimw.Recoverer)

	if d.Registry != nil {
		metrics, err := mw.NewMetrics(d.Registry)
		if err != nil {
			return nil, err
		}
		r.Use(metrics.Handler)
	}

	r.Use(mw.CORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowCredentials))

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	ah := &handler.AuthHandler{
		Users:        d.Users,
		JWT:          d.JWT,
		Logger:       log,
		IsAdminEmail: d.Config.IsAdminEmail,
	}
	sh := &handler.SyncHandler{Svc: d.Docs, Logger: log}
	adm := &handler.AdminHandler{Svc: d.Admin, Logger: log}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.JWT))

			r.Get("/auth/me", ah.Me)
			r.Get("/sync", sh.Download)
			r.Post("/sync", sh.Upload)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))

				r.Get("/overview", adm.Overview)
				r.Get("/users", adm.Users)
				r.Get("/users/{id}/revisions", adm.Revisions)
				r.Delete("/users/{id}", adm.DeleteUser)
			})
		})
	})

	return r, nil
}
