package http

import (
	"net/http"

	"decisionjar/internal/auth"
	"decisionjar/internal/config"
	"decisionjar/internal/http/handler"
	mw "decisionjar/internal/http/middleware"
	"decisionjar/internal/jar"
	"decisionjar/internal/rewards"
	"decisionjar/internal/selection"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, spinSvc *selection.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	jars := &jar.Service{DB: db}
	evaluator := &rewards.Evaluator{DB: db}
	recorder := &rewards.Recorder{Ledger: &rewards.Ledger{DB: db}, Evaluator: evaluator}

	me := &handler.MeHandler{Jars: jars}
	jarH := &handler.JarHandler{Jars: jars, Evaluator: evaluator}
	ideaH := &handler.IdeaHandler{Jars: jars, Rewards: recorder}
	spinH := &handler.SpinHandler{Jars: jars, Svc: spinSvc}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/me", me.Me)

		r.Route("/jars", func(r chi.Router) {
			r.Post("/", jarH.Create)
			r.Get("/", jarH.List)
			r.Post("/join", jarH.Join)
			r.Put("/active", jarH.SetActive)
			r.Get("/active/achievements", jarH.Achievements)
			r.Delete("/{id}", jarH.Delete)
		})

		r.Route("/ideas", func(r chi.Router) {
			r.Get("/", ideaH.List)
			r.Post("/", ideaH.Create)
			r.Delete("/{id}", ideaH.Delete)
			r.Post("/{id}/rate", ideaH.Rate)
		})

		r.Post("/spin", spinH.Spin)
	})

	return r
}
