package settings

import "log/slog"

type Option func(r *Resolver)

// WithLogger specifies the logger for the resolver
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithEnv specifies the environment lookup, so tests can avoid
// touching the real process environment
func WithEnv(env EnvFn) Option {
	return func(r *Resolver) {
		r.env = env
	}
}
