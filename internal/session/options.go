package session

import (
	"context"
	"io"
	"log/slog"
)

// Option configures a Session.
type Option func(*config)

type config struct {
	logger *slog.Logger
	schema *Schema
	clock  Sequencer
}

func defaultConfig() config {
	return config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:  NewClock(),
	}
}

// WithLogger sets the logger for storage failures and queue lifecycle.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSchema runs schema creation or upgrade as part of the open.
func WithSchema(s Schema) Option {
	return func(c *config) {
		c.schema = &s
	}
}

// WithClock replaces the queue sequencer. Tests use it to get
// deterministic sequence numbers across sessions.
func WithClock(s Sequencer) Option {
	return func(c *config) {
		if s != nil {
			c.clock = s
		}
	}
}

// Schema describes the database layout a session expects, keyed by the
// persisted user_version integer.
//
// On open, a stored version of 0 runs OnCreate; a lower version runs
// OnUpgrade(from, Version); a higher version fails the open. The new
// version is written and committed together with the hook's statements.
type Schema struct {
	Version   int
	OnCreate  func(ctx context.Context, u Unit) error
	OnUpgrade func(ctx context.Context, u Unit, from, to int) error
}
