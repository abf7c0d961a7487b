package objectstore

import (
	"io"
	"log/slog"
)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUIDv7 local id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithLogger sets the store logger. Open passes it on to the session.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
