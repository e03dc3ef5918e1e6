// Package autosave schedules persistence of in-progress article edits.
//
// Each open edit surface gets one Session: an explicit state machine driven
// by Edit, Tick and Close calls so it can be exercised by tests with an
// injected clock instead of wall-clock timers. A session debounces rapid
// edits, flushes periodically to bound staleness, and flushes once more on
// close.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/rs/zerolog"
)

// SaveFunc persists a draft for an article on behalf of an actor.
type SaveFunc func(ctx context.Context, articleID, actorID string, draft models.ArticleDraft) error

// Config controls session timing. Zero values fall back to the defaults.
type Config struct {
	// DebounceInterval is how long edits must quiesce before a save fires.
	DebounceInterval time.Duration
	// FlushInterval bounds staleness under continuous editing.
	FlushInterval time.Duration
}

const (
	defaultDebounceInterval = 3 * time.Second
	defaultFlushInterval    = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = defaultDebounceInterval
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	return c
}

// Session tracks one open edit of one article. Sessions for different
// articles never interact; within a session, the mutex is released while a
// save is in flight so edits keep landing, and the saving flag guarantees
// at most one save runs at a time.
type Session struct {
	articleID string
	actorID   string

	mu   sync.Mutex
	cond *sync.Cond

	live      models.ArticleDraft // last value observed
	lastSaved models.ArticleDraft // last value successfully persisted
	dirty     bool
	saving    bool
	closed    bool

	debounceAt  time.Time // zero when no debounce is pending
	nextFlushAt time.Time

	cfg  Config
	save SaveFunc
	log  zerolog.Logger
}

// NewSession opens a session for an article whose persisted content is
// baseline. No save will ever fire until an edit makes the session dirty.
func NewSession(articleID, actorID string, baseline models.ArticleDraft, cfg Config, save SaveFunc, log zerolog.Logger, now time.Time) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		articleID:   articleID,
		actorID:     actorID,
		live:        baseline,
		lastSaved:   baseline,
		cfg:         cfg,
		save:        save,
		nextFlushAt: now.Add(cfg.FlushInterval),
		log: log.With().
			Str("component", "autosave").
			Str("article_id", articleID).
			Logger(),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Edit records a new draft value and re-arms the debounce timer.
func (s *Session) Edit(draft models.ArticleDraft, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.live = draft
	s.dirty = true
	s.debounceAt = now.Add(s.cfg.DebounceInterval)
}

// Dirty reports whether the live value differs from the last persisted one.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty && !s.live.Equal(s.lastSaved)
}

// LastSaved returns the most recently persisted draft.
func (s *Session) LastSaved() models.ArticleDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Tick advances the session clock. It fires the debounce save once input
// has quiesced, and the periodic flush when the session has stayed dirty
// past the flush interval. Save failures are logged and the session stays
// dirty so a later trigger retries.
func (s *Session) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if !s.debounceAt.IsZero() && !now.Before(s.debounceAt) {
		s.debounceAt = time.Time{}
		if err := s.attemptSave(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Debounced autosave failed, edits re-queued")
		}
	}

	if !now.Before(s.nextFlushAt) {
		s.nextFlushAt = now.Add(s.cfg.FlushInterval)
		if s.dirty && !s.live.Equal(s.lastSaved) {
			if err := s.attemptSave(ctx); err != nil {
				s.log.Warn().Err(err).Msg("Periodic autosave failed, edits re-queued")
			}
		}
	}
}

// Close cancels pending timers and attempts one final flush if the live
// value differs from the last saved one. Unlike mid-session saves, a
// failure here is returned so the caller can warn about unsaved work.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.debounceAt = time.Time{}

	// Wait out an in-flight save before deciding whether a final flush
	// is still needed.
	for s.saving {
		s.cond.Wait()
	}

	if !s.dirty || s.live.Equal(s.lastSaved) {
		return nil
	}
	return s.attemptSave(ctx)
}

// attemptSave persists the live value if the session is dirty and no save
// is already in flight. A trigger firing mid-save does not start a second
// save; it leaves the session dirty for the next trigger. Caller must hold
// the mutex.
func (s *Session) attemptSave(ctx context.Context) error {
	if s.saving {
		return nil
	}
	if !s.dirty || s.live.Equal(s.lastSaved) {
		s.dirty = false
		return nil
	}

	draft := s.live
	s.saving = true
	s.mu.Unlock()
	err := s.save(ctx, s.articleID, s.actorID, draft)
	s.mu.Lock()
	s.saving = false
	s.cond.Broadcast()

	if err != nil {
		// Last-saved marker untouched; the session stays dirty.
		return err
	}

	s.lastSaved = draft
	s.dirty = !s.live.Equal(draft)
	s.log.Debug().Msg("Autosave persisted")
	return nil
}
