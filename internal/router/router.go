package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/messagely/messagely/internal/api/auth"
	"github.com/messagely/messagely/internal/api/message"
	"github.com/messagely/messagely/internal/api/user"
)

// Config contains the dependencies needed for the router setup.
type Config struct {
	AuthHandler            *auth.AuthHandler
	UserHandler            *user.UserHandler
	MessageHandler         *message.MessageHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (request ID, logger, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint, public.
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	// --- Public Routes ---
	// Credential endpoints do not require a session token.
	r.Group(func(r chi.Router) {
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/register", cfg.AuthHandler.Register)
	})

	// --- Protected Routes ---
	// Everything below requires a valid session token.
	r.Group(func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.ListUsers)
			r.Get("/{username}", cfg.UserHandler.GetUser)
			r.Get("/{username}/to", cfg.UserHandler.MessagesTo)
			r.Get("/{username}/from", cfg.UserHandler.MessagesFrom)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", cfg.MessageHandler.Create)
			r.Get("/{id}", cfg.MessageHandler.Get)
			r.Post("/{id}/read", cfg.MessageHandler.MarkRead)
		})
	})

	return r
}
