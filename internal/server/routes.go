package server

import (
	"context"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sharebox/internal/archive"
	"sharebox/internal/config"
	"sharebox/internal/handlers"
	"sharebox/internal/handlers/api"
	"sharebox/internal/middleware"
	"sharebox/internal/sharing"
)

// UserStore is what the auth layer needs from the database.
type UserStore interface {
	handlers.UserStore
	middleware.UserLookup
}

// Dependencies are the constructed services the routes are wired to.
type Dependencies struct {
	Service  *sharing.Service
	Streamer *archive.Streamer
	Users    UserStore
	Checks   map[string]handlers.Pinger
	Policy   *config.Policy
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Dependencies) error {
	authMiddleware := middleware.NewAuthMiddleware(deps.Users)

	shareHandler := api.NewShareHandler(deps.Service, s.Log, deps.Policy.Shares.DefaultHours)
	fileHandler := api.NewFileHandler(deps.Service, s.Log)
	archiveHandler := api.NewArchiveHandler(deps.Service, deps.Streamer, s.Log)
	probeHandler := handlers.NewProbeHandler(deps.Checks, s.Log)

	// Probes and metrics
	s.App.Get("/healthz", probeHandler.Liveness)
	s.App.Get("/readyz", probeHandler.Readiness)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Sign-in is optional; anonymous shares work without it
	if s.Cfg.IsOIDCEnabled() {
		authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, deps.Users, s.Log)
		if err != nil {
			return err
		}
		s.App.Get("/auth/login", authHandler.Login)
		s.App.Get("/auth/callback", authHandler.Callback)
		s.App.Get("/auth/logout", authHandler.Logout)
	} else {
		s.Log.Info("OIDC sign-in disabled; all shares will be anonymous")
	}

	s.App.Get("/me", authMiddleware.RequireAuth, handlers.Me)
	s.App.Get("/me/shares", authMiddleware.RequireAuth, shareHandler.ListOwned)

	shares := s.App.Group("/shares", authMiddleware.OptionalAuth)
	shares.Post("/", shareHandler.Create)
	shares.Post("/:link/files", fileHandler.Register)
	shares.Get("/:link/files", fileHandler.List)
	shares.Get("/:link/files/:fileId/download", fileHandler.Download)
	shares.Post("/:link/verify", shareHandler.Verify)
	shares.Get("/:link/archive", archiveHandler.Download)
	shares.Delete("/:ref", shareHandler.Delete)
	shares.Patch("/:ref", shareHandler.Extend)

	return nil
}
