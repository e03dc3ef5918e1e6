package service

import (
	"context"
	"time"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// auditService is the concrete implementation of AuditService
type auditService struct {
	repo         repository.AuditRepository
	recentWindow time.Duration
	log          zerolog.Logger
}

// newAuditService creates a new AuditService
func newAuditService(repo repository.AuditRepository, recentWindow time.Duration, log zerolog.Logger) *auditService {
	if recentWindow <= 0 {
		recentWindow = 24 * time.Hour
	}
	return &auditService{
		repo:         repo,
		recentWindow: recentWindow,
		log:          log.With().Str("service", "audit").Logger(),
	}
}

// Record appends an audit entry. It completes before the enclosing
// operation returns so that audit coverage of mutating operations is
// complete; a write failure is logged and surfaced, never dropped.
func (s *auditService) Record(ctx context.Context, actorID, action, entityType, entityID string, metadata map[string]string) error {
	entry := &models.AuditEntry{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Str("action", action).
			Str("entity_id", entityID).
			Msg("Audit entry write failed")
		return err
	}
	return nil
}

// Query returns a page of entries matching the filter, newest first, plus
// the total match count
func (s *auditService) Query(ctx context.Context, filter models.AuditFilter, page, limit int) ([]*models.AuditEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.Query(ctx, filter, (page-1)*limit, limit)
}

// Stats aggregates the audit log. A non-positive window falls back to the
// configured trailing window (default 24h).
func (s *auditService) Stats(ctx context.Context, window time.Duration) (*models.AuditStats, error) {
	if window <= 0 {
		window = s.recentWindow
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.CountSince(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, err
	}
	byAction, err := s.repo.CountByAction(ctx)
	if err != nil {
		return nil, err
	}
	byEntity, err := s.repo.CountByEntity(ctx)
	if err != nil {
		return nil, err
	}

	return &models.AuditStats{
		Total:    total,
		Recent:   recent,
		ByAction: byAction,
		ByEntity: byEntity,
	}, nil
}
