package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/mocks"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/rs/zerolog"
)

type testEnv struct {
	services *service.Services
	articles *mocks.MockArticleRepository
	versions *mocks.MockVersionRepository
	audit    *mocks.MockAuditRepository
}

func newTestEnv() *testEnv {
	articles := mocks.NewMockArticleRepository()
	versions := mocks.NewMockVersionRepository()
	audit := mocks.NewMockAuditRepository()

	repos := &repository.Repositories{
		Article: articles,
		Version: versions,
		Audit:   audit,
	}
	cfg := &config.Config{
		Audit:  config.AuditConfig{RecentWindow: 24 * time.Hour},
		Import: config.ImportConfig{MaxLineSize: 1024 * 1024},
	}

	return &testEnv{
		services: service.NewServices(repos, cfg, zerolog.Nop()),
		articles: articles,
		versions: versions,
		audit:    audit,
	}
}

func testDraft(title string) models.ArticleDraft {
	return models.ArticleDraft{
		Title: title,
		Body:  "Some body text for " + title,
		Tags:  []string{"go", "testing"},
	}
}

func TestArticleService_Create(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	article, err := env.services.Article.Create(ctx, "actor-1", testDraft("Hello World"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if article.Slug != "hello-world" {
		t.Errorf("Expected slug hello-world, got %s", article.Slug)
	}
	if article.AuthorID != "actor-1" {
		t.Errorf("Expected author actor-1, got %s", article.AuthorID)
	}

	versions, err := env.services.Article.ListVersions(ctx, article.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("Expected 1 version after create, got %d", len(versions))
	}
	if versions[0].Sequence != 1 {
		t.Errorf("Expected first snapshot sequence 1, got %d", versions[0].Sequence)
	}

	entry := env.audit.LastEntry()
	if entry == nil || entry.Action != models.ActionCreate {
		t.Errorf("Expected %s audit entry, got %+v", models.ActionCreate, entry)
	}
}

func TestArticleService_Create_ValidationErrors(t *testing.T) {
	env := newTestEnv()

	_, err := env.services.Article.Create(context.Background(), "actor-1", models.ArticleDraft{Body: "no title"})
	if err == nil {
		t.Fatal("Expected validation error for missing title")
	}
	var verrs models.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected ValidationErrors, got %T: %v", err, err)
	}
	if len(verrs) == 0 || verrs[0].Field != "title" {
		t.Errorf("Expected title field error, got %+v", verrs)
	}

	count, _ := env.articles.Count(context.Background())
	if count != 0 {
		t.Errorf("Rejected draft must not be persisted, found %d articles", count)
	}
}

func TestArticleService_Create_SlugConflictSuffixes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.services.Article.Create(ctx, "actor-1", testDraft("My Post"))
	if err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	second, err := env.services.Article.Create(ctx, "actor-2", testDraft("My Post"))
	if err != nil {
		t.Fatalf("Second create failed: %v", err)
	}
	third, err := env.services.Article.Create(ctx, "actor-3", testDraft("My Post"))
	if err != nil {
		t.Fatalf("Third create failed: %v", err)
	}

	if first.Slug != "my-post" || second.Slug != "my-post-2" || third.Slug != "my-post-3" {
		t.Errorf("Expected my-post / my-post-2 / my-post-3, got %s / %s / %s",
			first.Slug, second.Slug, third.Slug)
	}
}

// racingArticleRepo makes slug resolution miss a configured number of times
// so the insert itself collides, exercising the retry on unique violation.
type racingArticleRepo struct {
	*mocks.MockArticleRepository
	misses int
}

func (r *racingArticleRepo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	if r.misses > 0 {
		r.misses--
		return nil, nil
	}
	return r.MockArticleRepository.GetBySlug(ctx, slug)
}

func TestArticleService_Create_RetriesOnInsertCollision(t *testing.T) {
	articles := mocks.NewMockArticleRepository()
	racing := &racingArticleRepo{MockArticleRepository: articles, misses: 1}
	repos := &repository.Repositories{
		Article: racing,
		Version: mocks.NewMockVersionRepository(),
		Audit:   mocks.NewMockAuditRepository(),
	}
	cfg := &config.Config{Audit: config.AuditConfig{RecentWindow: 24 * time.Hour}}
	services := service.NewServices(repos, cfg, zerolog.Nop())
	ctx := context.Background()

	if _, err := services.Article.Create(ctx, "actor-1", testDraft("Race Title")); err != nil {
		t.Fatalf("Seed create failed: %v", err)
	}

	// Resolution misses the existing row once, so the insert hits the
	// unique index and the service must re-resolve instead of failing.
	second, err := services.Article.Create(ctx, "actor-2", testDraft("Race Title"))
	if err != nil {
		t.Fatalf("Create after collision failed: %v", err)
	}
	if second.Slug != "race-title-2" {
		t.Errorf("Expected race-title-2 after retry, got %s", second.Slug)
	}
	if articles.CreateCalls < 3 {
		t.Errorf("Expected a retried insert, got %d create calls", articles.CreateCalls)
	}
}

func TestArticleService_Save_KeepsSlugWhenTitleUnchanged(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	article, err := env.services.Article.Create(ctx, "actor-1", testDraft("Stable Title"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	draft := article.Draft()
	draft.Body = "edited body"
	updated, err := env.services.Article.Save(ctx, article.ID, "actor-1", draft)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if updated.Slug != article.Slug {
		t.Errorf("Slug must survive a same-title edit, got %s was %s", updated.Slug, article.Slug)
	}

	versions, _ := env.services.Article.ListVersions(ctx, article.ID)
	if len(versions) != 2 {
		t.Errorf("Expected 2 versions after one edit, got %d", len(versions))
	}
}

func TestArticleService_Save_ReslugsOnTitleChange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	article, err := env.services.Article.Create(ctx, "actor-1", testDraft("Old Title"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	draft := article.Draft()
	draft.Title = "New Title"
	updated, err := env.services.Article.Save(ctx, article.ID, "actor-1", draft)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if updated.Slug != "new-title" {
		t.Errorf("Expected slug new-title, got %s", updated.Slug)
	}
}

func TestArticleService_Save_EqualContentIsNoOp(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	article, err := env.services.Article.Create(ctx, "actor-1", testDraft("Same Same"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	auditBefore, _ := env.audit.Count(ctx)

	if _, err := env.services.Article.Save(ctx, article.ID, "actor-1", article.Draft()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	versions, _ := env.services.Article.ListVersions(ctx, article.ID)
	if len(versions) != 1 {
		t.Errorf("Identical save must not snapshot, got %d versions", len(versions))
	}
	auditAfter, _ := env.audit.Count(ctx)
	if auditAfter != auditBefore {
		t.Errorf("Identical save must not audit, entries went %d -> %d", auditBefore, auditAfter)
	}
}

func TestArticleService_Save_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.services.Article.Save(context.Background(), "no-such-id", "actor-1", testDraft("Whatever"))
	if err != models.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestArticleService_Save_StampsPublishedAtOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	article, err := env.services.Article.Create(ctx, "actor-1", testDraft("Publish Me"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if article.PublishedAt != nil {
		t.Fatal("Unpublished article must not carry PublishedAt")
	}

	draft := article.Draft()
	draft.Published = true
	published, err := env.services.Article.Save(ctx, article.ID, "actor-1", draft)
	if err != nil {
		t.Fatalf("Publish save failed: %v", err)
	}
	if published.PublishedAt == nil {
		t.Fatal("Publishing must stamp PublishedAt")
	}
	stamped := *published.PublishedAt

	draft = published.Draft()
	draft.Published = false
	unpublished, err := env.services.Article.Save(ctx, article.ID, "actor-1", draft)
	if err != nil {
		t.Fatalf("Unpublish save failed: %v", err)
	}
	draft = unpublished.Draft()
	draft.Published = true
	republished, err := env.services.Article.Save(ctx, article.ID, "actor-1", draft)
	if err != nil {
		t.Fatalf("Republish save failed: %v", err)
	}
	if republished.PublishedAt == nil || !republished.PublishedAt.Equal(stamped) {
		t.Errorf("Republishing must keep the original PublishedAt %v, got %v", stamped, republished.PublishedAt)
	}
}

func TestArticleService_Restore(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	article, err := env.services.Article.Create(ctx, "actor-1", testDraft("Versioned"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	draft := article.Draft()
	draft.Body = "second revision"
	if _, err := env.services.Article.Save(ctx, article.ID, "actor-1", draft); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	versions, _ := env.services.Article.ListVersions(ctx, article.ID)
	if len(versions) != 2 {
		t.Fatalf("Expected 2 versions, got %d", len(versions))
	}
	firstVersion := versions[0]

	restored, err := env.services.Article.Restore(ctx, article.ID, firstVersion.ID, "actor-2")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.Body != "Some body text for Versioned" {
		t.Errorf("Restored body mismatch: %q", restored.Body)
	}

	// Restoring is itself a save: the history grows, it never rewinds.
	versions, _ = env.services.Article.ListVersions(ctx, article.ID)
	if len(versions) != 3 {
		t.Errorf("Expected 3 versions after restore, got %d", len(versions))
	}

	entry := env.audit.LastEntry()
	if entry == nil || entry.Action != models.ActionRestore {
		t.Fatalf("Expected %s audit entry, got %+v", models.ActionRestore, entry)
	}
	if entry.EntityType != models.EntityVersion || entry.EntityID != firstVersion.ID {
		t.Errorf("Restore entry must reference the snapshot, got %+v", entry)
	}
	if entry.Metadata["article_id"] != article.ID {
		t.Errorf("Restore metadata missing article_id, got %v", entry.Metadata)
	}
}

func TestArticleService_Restore_WrongArticle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a, _ := env.services.Article.Create(ctx, "actor-1", testDraft("Article A"))
	b, _ := env.services.Article.Create(ctx, "actor-1", testDraft("Article B"))

	versionsA, _ := env.services.Article.ListVersions(ctx, a.ID)
	if _, err := env.services.Article.Restore(ctx, b.ID, versionsA[0].ID, "actor-1"); err != models.ErrNotFound {
		t.Errorf("Restoring another article's snapshot must be ErrNotFound, got %v", err)
	}
}

func TestArticleService_Get_CountsView(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	article, _ := env.services.Article.Create(ctx, "actor-1", testDraft("Viewed"))

	got, err := env.services.Article.Get(ctx, article.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ViewCount != 1 {
		t.Errorf("Expected view count 1, got %d", got.ViewCount)
	}
	if env.articles.ViewCounts[article.ID] != 1 {
		t.Errorf("Expected one increment, got %d", env.articles.ViewCounts[article.ID])
	}
}

func TestArticleService_Delete_Audits(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	article, _ := env.services.Article.Create(ctx, "actor-1", testDraft("Doomed"))

	if err := env.services.Article.Delete(ctx, article.ID, "actor-9"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := env.services.Article.Get(ctx, article.ID); err != models.ErrNotFound {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	entry := env.audit.LastEntry()
	if entry == nil || entry.Action != models.ActionDelete || entry.ActorID != "actor-9" {
		t.Errorf("Expected %s entry by actor-9, got %+v", models.ActionDelete, entry)
	}

	// The version history outlives the article.
	snapshots, _ := env.versions.ListByArticle(ctx, article.ID)
	if len(snapshots) != 1 {
		t.Errorf("Snapshots must survive deletion, got %d", len(snapshots))
	}
}

func TestExportImport_NDJSONRoundTrip(t *testing.T) {
	source := newTestEnv()
	ctx := context.Background()

	titles := []string{"First Post", "Second Post", "Third Post"}
	for _, title := range titles {
		draft := testDraft(title)
		draft.Description = "About " + title
		if _, err := source.services.Article.Create(ctx, "author-1", draft); err != nil {
			t.Fatalf("Create %q failed: %v", title, err)
		}
	}

	var buf bytes.Buffer
	count, err := source.services.Export.Export(ctx, &buf, service.FormatNDJSON, nil, "actor-1")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("Expected 3 exported, got %d", count)
	}

	target := newTestEnv()
	result, err := target.services.Import.Import(ctx, &buf, "importer-1")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Imported != 3 {
		t.Fatalf("Expected 3 imported, got %d (errors: %v)", result.Imported, result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("Expected no errors, got %v", result.Errors)
	}

	// Every content field comes back; identity and timestamps do not.
	for _, title := range []string{"first-post", "second-post", "third-post"} {
		src, _ := source.services.Article.GetBySlug(ctx, title)
		dst, err := target.services.Article.GetBySlug(ctx, title)
		if err != nil {
			t.Fatalf("Imported article %s missing: %v", title, err)
		}
		if !src.Draft().Equal(dst.Draft()) {
			t.Errorf("Content mismatch for %s:\n src %+v\n dst %+v", title, src.Draft(), dst.Draft())
		}
		if src.AuthorID != dst.AuthorID {
			t.Errorf("Author not carried for %s: %s vs %s", title, src.AuthorID, dst.AuthorID)
		}
		if src.ID == dst.ID {
			t.Errorf("Import must mint fresh identity, both have %s", src.ID)
		}
	}
}

func TestImportService_PartialFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	input := strings.Join([]string{
		`{"title":"Good One","body":"body one"}`,
		`{"title":"Good Two","body":"body two"}`,
		`{not json at all`,
		`{"title":"","body":"missing title"}`,
		``,
		`{"title":"Good Three","body":"body three"}`,
	}, "\n")

	result, err := env.services.Import.Import(ctx, strings.NewReader(input), "importer-1")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Imported != 3 {
		t.Errorf("Expected 3 imported, got %d", result.Imported)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("Expected 2 errors, got %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "line 3") {
		t.Errorf("First error should identify line 3, got %q", result.Errors[0])
	}
	if !strings.Contains(result.Errors[1], "line 4") || !strings.Contains(result.Errors[1], "untitled") {
		t.Errorf("Second error should identify line 4 and the untitled record, got %q", result.Errors[1])
	}

	if count, _ := env.articles.Count(ctx); count != 3 {
		t.Errorf("Expected 3 persisted articles, got %d", count)
	}
}

func TestImportService_DuplicateTitlesGetSuffixedSlugs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	input := `{"title":"Dup","body":"a"}` + "\n" + `{"title":"Dup","body":"b"}` + "\n"
	result, err := env.services.Import.Import(ctx, strings.NewReader(input), "importer-1")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("Expected 2 imported, got %d (%v)", result.Imported, result.Errors)
	}

	if _, err := env.services.Article.GetBySlug(ctx, "dup"); err != nil {
		t.Errorf("Expected slug dup: %v", err)
	}
	if _, err := env.services.Article.GetBySlug(ctx, "dup-2"); err != nil {
		t.Errorf("Expected slug dup-2: %v", err)
	}
}

func TestExportService_Markdown(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	draft := testDraft("Markdown Me")
	draft.Description = "A short summary"
	if _, err := env.services.Article.Create(ctx, "author-1", draft); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var buf bytes.Buffer
	count, err := env.services.Export.Export(ctx, &buf, service.FormatMarkdown, nil, "actor-1")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 exported, got %d", count)
	}

	out := buf.String()
	for _, want := range []string{
		"---\n",
		"title: Markdown Me",
		"slug: markdown-me",
		"# Markdown Me",
		"> A short summary",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown output missing %q:\n%s", want, out)
		}
	}
}

func TestExportService_UnsupportedFormat(t *testing.T) {
	env := newTestEnv()

	var buf bytes.Buffer
	if _, err := env.services.Export.Export(context.Background(), &buf, "xml", nil, "actor-1"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestExportService_SelectedIDs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a, _ := env.services.Article.Create(ctx, "author-1", testDraft("Keep"))
	env.services.Article.Create(ctx, "author-1", testDraft("Skip"))

	var buf bytes.Buffer
	count, err := env.services.Export.Export(ctx, &buf, service.FormatNDJSON, []string{a.ID}, "actor-1")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 exported, got %d", count)
	}
	if strings.Contains(buf.String(), "Skip") {
		t.Error("Export must honor the id filter")
	}
}

func TestAuditService_QueryFilters(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.services.Audit.Record(ctx, "actor-1", models.ActionCreate, models.EntityArticle, "a1", nil)
	env.services.Audit.Record(ctx, "actor-1", models.ActionUpdate, models.EntityArticle, "a1", nil)
	env.services.Audit.Record(ctx, "actor-2", models.ActionRestore, models.EntityVersion, "v1", nil)

	entries, total, err := env.services.Audit.Query(ctx, models.AuditFilter{Action: models.ActionUpdate}, 1, 20)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("Expected 1 match, got total=%d len=%d", total, len(entries))
	}
	if entries[0].Action != models.ActionUpdate {
		t.Errorf("Wrong entry: %+v", entries[0])
	}

	entries, total, err = env.services.Audit.Query(ctx, models.AuditFilter{EntityType: models.EntityVersion}, 1, 20)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 1 || entries[0].EntityID != "v1" {
		t.Errorf("Entity filter failed: total=%d entries=%+v", total, entries)
	}
}

func TestAuditService_Stats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Two fresh entries through the service, one stale entry planted
	// directly in the repository.
	env.services.Audit.Record(ctx, "actor-1", models.ActionCreate, models.EntityArticle, "a1", nil)
	env.services.Audit.Record(ctx, "actor-1", models.ActionUpdate, models.EntityArticle, "a1", nil)
	env.audit.Insert(ctx, &models.AuditEntry{
		ID:         "stale",
		ActorID:    "actor-0",
		Action:     models.ActionUpdate,
		EntityType: models.EntityArticle,
		EntityID:   "a0",
		CreatedAt:  time.Now().Add(-48 * time.Hour),
	})

	stats, err := env.services.Audit.Stats(ctx, 0)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Expected total 3, got %d", stats.Total)
	}
	if stats.Recent != 2 {
		t.Errorf("Expected 2 entries inside the 24h window, got %d", stats.Recent)
	}
	if stats.ByAction[models.ActionUpdate] != 2 {
		t.Errorf("Expected 2 update entries, got %d", stats.ByAction[models.ActionUpdate])
	}
	if stats.ByEntity[models.EntityArticle] != 3 {
		t.Errorf("Expected 3 article entries, got %d", stats.ByEntity[models.EntityArticle])
	}
}
