package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskflow/task-service/internal/usecase"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	// Quiet drops the per-request access log.
	Quiet bool
}

// NewRouter assembles the API: auth routes, task routes behind bearer
// authentication, and the operational endpoints.
func NewRouter(taskUC usecase.TaskUseCase, userUC usecase.UserUseCase, verifier TokenVerifier, cfg RouterConfig) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	if !cfg.Quiet {
		router.Use(middleware.Logger)
	}
	router.Use(
		middleware.Recoverer,
		Metrics,
		middleware.Heartbeat("/health"),
	)
	if cfg.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	tasks := NewTaskHandler(taskUC)
	users := NewAuthHandler(userUC, verifier)

	router.Route("/api/v1", func(r chi.Router) {
		users.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(verifier))
			tasks.RegisterRoutes(r)
		})
	})

	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Route not found")
	})

	return router
}
