package api

import (
	"github.com/okian/rivalry/internal/adapters/auth"
	"github.com/okian/rivalry/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAuthenticator gates the admin routes. Without one they answer 503.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(s *Server) { s.auth = a }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithMounts attaches extra routes after the API routes.
func WithMounts(mounts ...Mount) Option {
	return func(s *Server) { s.mounts = append(s.mounts, mounts...) }
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
