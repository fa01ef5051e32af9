// Package server sets up the HTTP server, router, and all route
// definitions.
//
// This package is the composition root: the database, auth primitives,
// services, and handlers are all wired together in New, so the
// dependency chain of the whole application is readable in one place.
// main.go stays minimal — load config, construct the externals, start
// the server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/media-gallery/internal/auth"
	"github.com/sakif/media-gallery/internal/config"
	"github.com/sakif/media-gallery/internal/handler"
	"github.com/sakif/media-gallery/internal/mailer"
	"github.com/sakif/media-gallery/internal/middleware"
	sqliteRepo "github.com/sakif/media-gallery/internal/repository/sqlite"
	"github.com/sakif/media-gallery/internal/service"
	"github.com/sakif/media-gallery/internal/storage"
)

// Server owns the router and the resources that need closing on
// shutdown. The database connection is closed in Start after graceful
// shutdown completes so the WAL is flushed and the file lock released.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain.
//
// The blob store and mailer are injected rather than constructed here:
// both talk to the outside world (S3, an SMTP relay), so main decides
// how to build them and tests pass in fakes.
func New(cfg *config.Config, blobs storage.BlobStore, mail mailer.Mailer, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(blobs, mail); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the service and handler
// layers, and declares the route table.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                             → liveness probe
//	POST   /api/auth/register/request-otp       → start registration
//	POST   /api/auth/register/verify-otp        → confirm OTP, get token
//	POST   /api/auth/login                      → password login
//	POST   /api/auth/google-login               → ID-token sign-in
//	POST   /api/auth/forgot-password            → request reset code
//	POST   /api/auth/reset-password             → set new password
//	GET    /auth/google/login                   → OAuth code flow start
//	GET    /auth/google/callback                → OAuth code flow finish
//	GET    /api/me                              → current user       [auth]
//	PUT    /api/users/profile                   → rename self        [auth]
//	POST   /api/media                           → upload             [auth]
//	GET    /api/media                           → list own           [auth]
//	GET    /api/media/{id}                      → get own            [auth]
//	PUT    /api/media/{id}                      → edit metadata      [auth]
//	DELETE /api/media/{id}                      → delete             [auth]
//	GET    /api/media/{id}/download             → presigned URL      [auth]
//	POST   /api/contact                         → submit message     [optional auth]
//	GET    /api/contact/my-messages             → own messages       [auth]
//	PUT    /api/contact/{id}                    → edit own message   [auth]
//	DELETE /api/contact/{id}                    → hide own message   [auth]
//	GET    /api/admin/users                     → list accounts      [admin]
//	PUT    /api/admin/users/{id}                → edit account       [admin]
//	GET    /api/admin/contact                   → full inbox         [admin]
//	DELETE /api/admin/contact/{id}              → hide any message   [admin]
//
// MIDDLEWARE ORDER:
// RequestID and RealIP run first so the logger sees them; Recoverer
// wraps everything so a panicking handler returns 500 instead of
// killing the process.
func (s *Server) setupRoutes(blobs storage.BlobStore, mail mailer.Mailer) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Auth primitives ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	otps := auth.NewOTPService()
	verifier := auth.NewGoogleVerifier(s.config.GoogleClientID)

	// The code-flow provider needs the full client credentials; without
	// them the redirect endpoints answer 503 while the rest of the API
	// keeps working.
	var provider *auth.GoogleProvider
	if s.config.GoogleClientID != "" && s.config.GoogleClientSecret != "" {
		provider = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleRedirectURL,
		)
	} else {
		s.logger.Warn("google oauth credentials not set, code-flow login disabled")
	}

	// === Services ===
	authService := service.NewAuthService(s.db.Users(), tokens, passwords, otps, verifier, mail, s.logger)
	userService := service.NewUserService(s.db.Users(), s.logger)
	mediaService := service.NewMediaService(s.db.Media(), blobs, s.logger)
	contactService := service.NewContactService(s.db.Contacts(), s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, provider, s.logger)
	userHandler := handler.NewUserHandler(userService, contactService, s.logger)
	mediaHandler := handler.NewMediaHandler(mediaService, s.logger)
	contactHandler := handler.NewContactHandler(contactService, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.db.Users())
	optionalAuth := auth.OptionalAuth(tokens, s.db.Users())

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// OAuth code flow lives outside /api: these are browser navigations,
	// not XHR calls.
	s.router.Get("/auth/google/login", authHandler.HandleGoogleRedirect)
	s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)

	s.router.Route("/api", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register/request-otp", authHandler.HandleRegisterRequestOTP)
			r.Post("/register/verify-otp", authHandler.HandleRegisterVerifyOTP)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/google-login", authHandler.HandleGoogleLogin)
			r.Post("/forgot-password", authHandler.HandleForgotPassword)
			r.Post("/reset-password", authHandler.HandleResetPassword)
		})

		// Anonymous visitors may submit; a valid token ties the message
		// to the account.
		r.With(optionalAuth).Post("/contact", contactHandler.HandleSubmit)

		// Everything below requires a valid session
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)
			r.Put("/users/profile", userHandler.HandleUpdateProfile)

			r.Route("/media", func(r chi.Router) {
				r.Post("/", mediaHandler.HandleUpload)
				r.Get("/", mediaHandler.HandleList)
				r.Get("/{id}", mediaHandler.HandleGet)
				r.Put("/{id}", mediaHandler.HandleUpdate)
				r.Delete("/{id}", mediaHandler.HandleDelete)
				r.Get("/{id}/download", mediaHandler.HandleDownload)
			})

			r.Get("/contact/my-messages", contactHandler.HandleListMine)
			r.Put("/contact/{id}", contactHandler.HandleUpdate)
			r.Delete("/contact/{id}", contactHandler.HandleDelete)

			// Admin panel
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Get("/users", userHandler.HandleAdminListUsers)
				r.Put("/users/{id}", userHandler.HandleAdminUpdateUser)
				r.Get("/contact", userHandler.HandleAdminListContacts)
				r.Delete("/contact/{id}", userHandler.HandleAdminDeleteContact)
			})
		})
	})

	return nil
}

// Handler exposes the router for tests that drive the full stack with
// httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and handles graceful shutdown.
//
// On SIGINT/SIGTERM: stop accepting connections, give in-flight
// requests 30 seconds to finish, then close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
