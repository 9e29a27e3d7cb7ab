package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/ai-tutor/backend/app"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Synthesis calls can hold a request open while the model generates
	r.Use(middleware.Timeout(5 * time.Minute))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/health", deps.HealthHandler.HandleHealth)
	r.Get("/health/ready", deps.HealthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.AuthHandler.HandleRegister)
			r.Post("/login", deps.AuthHandler.HandleLogin)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Get("/me", deps.AuthHandler.HandleCurrentUser)
			})
		})

		// Document management and analysis
		r.Route("/documents", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/", deps.DocumentHandler.HandleUpload)
			r.Get("/", deps.DocumentHandler.HandleList)
			r.Delete("/{filename}", deps.DocumentHandler.HandleDelete)
			r.Post("/{filename}/analysis/{kind}", deps.AnalysisHandler.HandleAnalyze)
		})

		// Question answering and thread management
		r.Route("/chat", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/ask", deps.ChatHandler.HandleAsk)
			r.Get("/threads", deps.ChatHandler.HandleListThreads)
			r.Get("/threads/{id}/messages", deps.ChatHandler.HandleThreadHistory)
			r.Patch("/threads/{id}", deps.ChatHandler.HandleRenameThread)
			r.Delete("/threads/{id}", deps.ChatHandler.HandleDeleteThread)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
