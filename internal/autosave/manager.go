package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/rs/zerolog"
)

// LoadFunc fetches the currently persisted draft of an article so a new
// session starts with the right last-saved baseline.
type LoadFunc func(ctx context.Context, articleID string) (models.ArticleDraft, error)

// Manager owns the open autosave sessions and drives their timers from a
// single ticker goroutine. Sessions are keyed by article ID.
type Manager struct {
	cfg  Config
	tick time.Duration
	save SaveFunc
	load LoadFunc
	log  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
}

// NewManager creates a session manager. tick is how often session timers
// are evaluated; it should be well below the debounce interval.
func NewManager(cfg Config, tick time.Duration, save SaveFunc, load LoadFunc, log zerolog.Logger) *Manager {
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	return &Manager{
		cfg:      cfg.withDefaults(),
		tick:     tick,
		save:     save,
		load:     load,
		sessions: make(map[string]*Session),
		log:      log.With().Str("service", "autosave").Logger(),
	}
}

// StartProcessor starts the background ticker that drives session timers
func (m *Manager) StartProcessor(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.running = true
	m.mu.Unlock()

	m.log.Info().Dur("tick", m.tick).Msg("Autosave processor started")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, session := range m.snapshotSessions() {
					session.Tick(ctx, now)
				}
			}
		}
	}()
}

// StopProcessor stops the ticker and closes every open session, giving each
// a final flush. Flush failures are logged; shutdown proceeds regardless.
func (m *Manager) StopProcessor() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	ctx, cancelFlush := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelFlush()

	for id, session := range m.snapshotSessions() {
		if err := session.Close(ctx); err != nil {
			m.log.Error().Err(err).Str("article_id", id).Msg("Final autosave flush failed, unsaved work lost")
		}
	}

	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	m.log.Info().Msg("Autosave processor stopped")
}

// Edit routes an edit event to the article's session, opening one if the
// edit surface was not open yet.
func (m *Manager) Edit(ctx context.Context, articleID, actorID string, draft models.ArticleDraft) error {
	now := time.Now()

	m.mu.Lock()
	session, ok := m.sessions[articleID]
	m.mu.Unlock()

	if !ok {
		baseline, err := m.load(ctx, articleID)
		if err != nil {
			return err
		}

		m.mu.Lock()
		// Another request may have opened the session meanwhile.
		if existing, ok := m.sessions[articleID]; ok {
			session = existing
		} else {
			session = NewSession(articleID, actorID, baseline, m.cfg, m.save, m.log, now)
			m.sessions[articleID] = session
			m.log.Debug().Str("article_id", articleID).Msg("Autosave session opened")
		}
		m.mu.Unlock()
	}

	session.Edit(draft, now)
	return nil
}

// Close discards the article's session after a best-effort final flush.
// The error is surfaced so callers can warn the user about unsaved work.
func (m *Manager) Close(ctx context.Context, articleID string) error {
	m.mu.Lock()
	session, ok := m.sessions[articleID]
	delete(m.sessions, articleID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return session.Close(ctx)
}

// OpenSessions returns the number of currently open sessions.
func (m *Manager) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) snapshotSessions() map[string]*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		snapshot[id] = s
	}
	return snapshot
}
