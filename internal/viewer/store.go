package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// View pairs a session with the mirrored map it drives.
type View struct {
	ID      string
	Session *Session
	Mirror  *Mirror

	mu       sync.Mutex
	lastSeen time.Time
}

// Store keeps viewer sessions in memory. Sessions idle for longer than the
// TTL are evicted by Run; nothing is persisted.
type Store struct {
	tileBase string
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	views map[string]*View
}

func NewStore(tileBase string, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		tileBase: tileBase,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		views:    make(map[string]*View),
	}
}

// Create starts a new session against catalog and registers it.
func (s *Store) Create(catalog *domain.Catalog) (*View, error) {
	mirror := NewMirror(catalog.Defaults.Camera)
	session := NewSession(catalog, mirror, s.tileBase, s.logger)
	if err := session.Start(); err != nil {
		return nil, err
	}

	v := &View{
		ID:       uuid.New().String(),
		Session:  session,
		Mirror:   mirror,
		lastSeen: s.now(),
	}

	s.mu.Lock()
	s.views[v.ID] = v
	s.mu.Unlock()

	s.logger.Debug("Viewer session created", zap.String("session_id", v.ID))
	return v, nil
}

// With runs fn while holding the view's lock, so each session sees a
// single writer.
func (s *Store) With(id string, fn func(v *View) error) error {
	s.mu.Lock()
	v, ok := s.views[id]
	if ok {
		v.lastSeen = s.now()
	}
	s.mu.Unlock()

	if !ok {
		return errors.ErrSessionNotFound
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(v)
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.views[id]; !ok {
		return errors.ErrSessionNotFound
	}
	delete(s.views, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, v := range s.views {
		if v.lastSeen.Before(cutoff) {
			delete(s.views, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is cancelled.
func (s *Store) Run(ctx context.Context) error {
	if s.ttl <= 0 {
		<-ctx.Done()
		return nil
	}

	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Session janitor started", zap.Duration("ttl", s.ttl))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session janitor stopped")
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("Expired viewer sessions", zap.Int("count", n), zap.Int("remaining", s.Len()))
			}
		}
	}
}
