package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry shares one Session per database name. The first Open for a name
// starts the session; later Opens get the same one until it is closed.
type Registry struct {
	driver Driver
	opts   []Option

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions use driver and opts.
func NewRegistry(driver Driver, opts ...Option) *Registry {
	return &Registry{
		driver:   driver,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for name, starting it if needed, and waits
// for it to be open.
func (r *Registry) Open(ctx context.Context, name string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[name]
	if !ok || s.closingRequested() {
		s = start(r.driver, name, r.opts...)
		r.sessions[name] = s
	}
	r.mu.Unlock()

	if _, err := s.opened.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		r.forget(name, s)
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes and forgets the session for name. Closing an unknown name
// is a no-op.
func (r *Registry) Close(ctx context.Context, name string) error {
	r.mu.Lock()
	s, ok := r.sessions[name]
	delete(r.sessions, name)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if _, err := s.Close().Wait(ctx); err != nil && !IsSessionClosed(err) {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// DeleteDatabase closes the session for name, if any, and removes the
// database.
func (r *Registry) DeleteDatabase(ctx context.Context, name string) error {
	r.mu.Lock()
	s, ok := r.sessions[name]
	delete(r.sessions, name)
	r.mu.Unlock()

	if ok {
		return s.DeleteDatabase(ctx)
	}
	if err := r.driver.Remove(name); err != nil {
		return fmt.Errorf("delete database %s: %w", name, err)
	}
	return nil
}

// Names returns the names of the registered sessions, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll closes every registered session.
func (r *Registry) CloseAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.Close(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) forget(name string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[name] == s {
		delete(r.sessions, name)
	}
}

func (s *Session) closingRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}
