package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tickets-web/internal/config"
	"tickets-web/internal/handlers"
	"tickets-web/internal/middleware"
	"tickets-web/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server owns the router and the long-lived state behind it
type Server struct {
	router  chi.Router
	cart    *handlers.CartHandler
	limiter *middleware.LoginRateLimiter
}

// New wires the frontend routes against backend
func New(cfg *config.Config, backend services.BackendService, store sessions.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sessionMiddleware := middleware.NewSessionMiddleware(store, logger)
	csrfMiddleware := middleware.NewCSRFMiddleware(store, logger)
	limiter := middleware.NewLoginRateLimiter(cfg.Login.MaxAttempts, cfg.Login.Window)

	cartHandler := handlers.NewCartHandler(backend, sessionMiddleware, handlers.CartHandlerConfig{
		StorageURL:           cfg.Backend.StorageURL,
		ViewTTL:              cfg.Views.TTL,
		MaxViews:             cfg.Views.MaxOpen,
		RestoreFailedDeletes: cfg.Views.RestoreFailedDeletes,
	}, logger)
	ticketHandler := handlers.NewTicketHandler(backend, sessionMiddleware, cfg.Backend.StorageURL, logger)
	authHandler := handlers.NewAuthHandler(backend, sessionMiddleware, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recoverer(logger))
	r.Use(sessionMiddleware.LoadCredential)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.SecureHeaders)
	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware.EnsureCSRFToken)
		r.Use(csrfMiddleware.CSRFProtection)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/cart", http.StatusSeeOther)
		})
		r.Get("/csrf-token", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"csrf_token": middleware.CSRFTokenFromContext(r.Context())})
		})

		r.Get("/cart", cartHandler.CartPage)
		r.Post("/cart/items/{id}/toggle", cartHandler.ToggleSelection)
		r.Post("/cart/items/{id}/delete", cartHandler.DeleteLine)
		r.Post("/cart/payment-method", cartHandler.SetPaymentMethod)
		r.Post("/checkout", cartHandler.Checkout)

		r.Get("/tickets/{code}", ticketHandler.TicketPage)
		r.Get("/tickets/{code}/qr.png", ticketHandler.DownloadQR)

		r.Get("/login", authHandler.LoginPage)
		r.Post("/logout", authHandler.Logout)
	})

	// Login attempts are counted before the CSRF check
	r.With(
		middleware.LoginRateLimit(limiter),
		csrfMiddleware.EnsureCSRFToken,
		csrfMiddleware.CSRFProtection,
	).Post("/login", authHandler.LoginSubmit)

	return &Server{
		router:  r,
		cart:    cartHandler,
		limiter: limiter,
	}
}

// Handler returns the traced root handler
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "tickets-web")
}

// Close stops background cleanup and tears down open cart views
func (s *Server) Close() {
	s.cart.Close()
	s.limiter.Stop()
}
