package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/lib/pq"
)

// UniqueViolation is the error the mock article repository returns when a
// write collides on slug, matching what lib/pq reports for SQLSTATE 23505.
var UniqueViolation = &pq.Error{Code: "23505", Constraint: "articles_slug_key"}

// MockArticleRepository is an in-memory implementation of ArticleRepository
type MockArticleRepository struct {
	mu          sync.Mutex
	Articles    map[string]*models.Article
	CreateError error
	UpdateError error
	GetError    error
	CreateCalls int
	UpdateCalls int
	ViewCounts  map[string]int
}

// Verify interface compliance
var _ repository.ArticleRepository = (*MockArticleRepository)(nil)

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{
		Articles:   make(map[string]*models.Article),
		ViewCounts: make(map[string]int),
	}
}

func (m *MockArticleRepository) bySlug(slug string) *models.Article {
	for _, a := range m.Articles {
		if a.Slug == slug {
			return a
		}
	}
	return nil
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	if m.bySlug(article.Slug) != nil {
		return UniqueViolation
	}
	copied := *article
	m.Articles[article.ID] = &copied
	return nil
}

func (m *MockArticleRepository) Update(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	existing, ok := m.Articles[article.ID]
	if !ok {
		return models.ErrNotFound
	}
	if other := m.bySlug(article.Slug); other != nil && other.ID != existing.ID {
		return UniqueViolation
	}
	copied := *article
	m.Articles[article.ID] = &copied
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	a, ok := m.Articles[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (m *MockArticleRepository) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	a := m.bySlug(slug)
	if a == nil {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Articles[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.Articles, id)
	return nil
}

func (m *MockArticleRepository) List(ctx context.Context, offset, limit int) ([]*models.Article, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		copied := *a
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	total := len(all)
	if offset >= total {
		return []*models.Article{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MockArticleRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Articles), nil
}

func (m *MockArticleRepository) IncrementViewCount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Articles[id]; ok {
		a.ViewCount++
	}
	m.ViewCounts[id]++
	return nil
}

func (m *MockArticleRepository) StreamAll(ctx context.Context, ids []string, callback func(*models.Article) error) error {
	m.mu.Lock()
	all := make([]*models.Article, 0, len(m.Articles))
	if len(ids) > 0 {
		for _, id := range ids {
			if a, ok := m.Articles[id]; ok {
				copied := *a
				all = append(all, &copied)
			}
		}
	} else {
		for _, a := range m.Articles {
			copied := *a
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	m.mu.Unlock()

	for _, a := range all {
		if err := callback(a); err != nil {
			return err
		}
	}
	return nil
}

// MockVersionRepository is an in-memory implementation of VersionRepository
type MockVersionRepository struct {
	mu          sync.Mutex
	Snapshots   map[string]*models.VersionSnapshot
	AppendError error
}

// Verify interface compliance
var _ repository.VersionRepository = (*MockVersionRepository)(nil)

func NewMockVersionRepository() *MockVersionRepository {
	return &MockVersionRepository{
		Snapshots: make(map[string]*models.VersionSnapshot),
	}
}

func (m *MockVersionRepository) Append(ctx context.Context, snapshot *models.VersionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendError != nil {
		return m.AppendError
	}
	copied := *snapshot
	m.Snapshots[snapshot.ID] = &copied
	return nil
}

func (m *MockVersionRepository) GetByID(ctx context.Context, id string) (*models.VersionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Snapshots[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MockVersionRepository) ListByArticle(ctx context.Context, articleID string) ([]*models.VersionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.VersionSnapshot, 0)
	for _, s := range m.Snapshots {
		if s.ArticleID == articleID {
			copied := *s
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})
	return result, nil
}

func (m *MockVersionRepository) NextSequence(ctx context.Context, articleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, s := range m.Snapshots {
		if s.ArticleID == articleID && s.Sequence > max {
			max = s.Sequence
		}
	}
	return max + 1, nil
}

// MockAuditRepository is an in-memory implementation of AuditRepository
type MockAuditRepository struct {
	mu          sync.Mutex
	Entries     []*models.AuditEntry
	InsertError error
}

// Verify interface compliance
var _ repository.AuditRepository = (*MockAuditRepository)(nil)

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{
		Entries: make([]*models.AuditEntry, 0),
	}
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	copied := *entry
	m.Entries = append(m.Entries, &copied)
	return nil
}

func (m *MockAuditRepository) matches(entry *models.AuditEntry, filter models.AuditFilter) bool {
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.EntityType != "" && entry.EntityType != filter.EntityType {
		return false
	}
	if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && entry.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

func (m *MockAuditRepository) Query(ctx context.Context, filter models.AuditFilter, offset, limit int) ([]*models.AuditEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]*models.AuditEntry, 0)
	for _, e := range m.Entries {
		if m.matches(e, filter) {
			copied := *e
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return []*models.AuditEntry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *MockAuditRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.Entries {
		if !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockAuditRepository) CountByAction(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range m.Entries {
		counts[e.Action]++
	}
	return counts, nil
}

func (m *MockAuditRepository) CountByEntity(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range m.Entries {
		counts[e.EntityType]++
	}
	return counts, nil
}

func (m *MockAuditRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries), nil
}

// LastEntry returns the most recently inserted entry, or nil.
func (m *MockAuditRepository) LastEntry() *models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}
