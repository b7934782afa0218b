package server

import (
	"log/slog"

	"github.com/JeremyNoori/xdc-risk-monitor/server/config"
	"github.com/JeremyNoori/xdc-risk-monitor/settings"
)

type Option func(s *Server)

// WithLogger specifies the logger for the server
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithConfig specifies the config for the server
func WithConfig(c *config.Config) Option {
	return func(s *Server) {
		s.config = c
	}
}

// WithResolver specifies the settings resolver used for request auth
func WithResolver(r *settings.Resolver) Option {
	return func(s *Server) {
		s.auth = r
	}
}

// WithEnv specifies the environment lookup for the settings listing
func WithEnv(env settings.EnvFn) Option {
	return func(s *Server) {
		s.env = env
	}
}
