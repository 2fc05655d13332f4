package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/examenapp/examen-api/internal/auth"
	"github.com/examenapp/examen-api/internal/notify"
)

// IdempotencyStore dedupes mutating requests by client-supplied key.
// *idempotency.Store implements it.
type IdempotencyStore interface {
	Key(method, path, idempotencyKey string) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Server struct {
	db       *sql.DB
	log      *zap.Logger
	tokens   *auth.TokenIssuer
	notifier notify.Sender
	idem     IdempotencyStore
}

// NewServer wires the API. notifier must not be nil (use notify.Disabled{}
// when FCM is unconfigured); idem may be nil to disable request dedupe.
func NewServer(db *sql.DB, log *zap.Logger, tokens *auth.TokenIssuer, notifier notify.Sender, idem IdempotencyStore) *Server {
	return &Server{
		db:       db,
		log:      log,
		tokens:   tokens,
		notifier: notifier,
		idem:     idem,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleCreateUser)
				r.Get("/", s.handleListUsers)
				r.Get("/{id}", s.handleGetUser)
				r.Put("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", s.handleListProducts)
				r.Get("/categories", s.handleListCategories)
				r.Get("/{id}", s.handleGetProduct)
				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Post("/", s.handleCreateProduct)
					r.Put("/{id}", s.handleUpdateProduct)
					r.Patch("/{id}/stock", s.handleAdjustStock)
					r.Delete("/{id}", s.handleDeleteProduct)
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(s.idempotent).Post("/", s.handleCreateOrder)
				r.Get("/", s.handleListOrders)
				r.Get("/stats", s.handleOrderStats)
				r.Get("/{id}", s.handleGetOrder)
				r.Put("/{id}", s.handleUpdateOrder)
				r.Delete("/{id}", s.handleCancelOrder)
			})

			r.Get("/me/orders", s.handleMyOrders)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", s.handleCreateTask)
				r.Get("/", s.handleListTasks)
				r.Get("/{id}", s.handleGetTask)
				r.Put("/{id}", s.handleUpdateTask)
				r.Delete("/{id}", s.handleDeleteTask)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Post("/register", s.handleRegisterDevice)
				r.Post("/send", s.handleSendNotification)
				r.Post("/send-multicast", s.handleSendMulticast)
				r.Post("/send-user", s.handleSendToUser)
				r.Post("/send-topic", s.handleSendToTopic)
				r.Post("/test", s.handleTestNotification)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, "ok", nil)
}
