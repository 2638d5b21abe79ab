package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"wiki-engine/cache"
	"wiki-engine/config"
	"wiki-engine/markup"
	"wiki-engine/metrics"
	"wiki-engine/models"
	"wiki-engine/repositories"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var nonWord = regexp.MustCompile(`[^A-Za-z0-9]+`)

type fixture struct {
	ctx context.Context
	db  *gorm.DB
	cfg config.WikiConfig

	articleRepo repositories.ArticleRepository
	versionRepo repositories.ArticleVersionRepository
	store       *cache.BadgerStore
	metrics     *metrics.Metrics
	renderers   *markup.Registry
	policy      Policy

	articles  ArticleService
	revisions RevisionService
	leases    LeaseService
	edits     EditService
	views     ViewService

	alice     models.Identity
	bob       models.Identity
	moderator models.Identity
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + nonWord.ReplaceAllString(t.Name(), "_") + "?mode=memory&cache=shared"
	db, err := config.InitDB(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, config.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, func(*config.WikiConfig) {})
}

func newFixtureWithConfig(t *testing.T, override func(*config.WikiConfig)) *fixture {
	t.Helper()

	cfg := config.Default().Wiki
	cfg.MarkupTypes = []string{markup.TypePlain, markup.TypeMarkdown}
	cfg.BasePath = "/wiki"
	override(&cfg)

	store, err := cache.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	renderers, err := markup.NewDefaultRegistry(cfg.MarkupTypes, markup.NewLinker(cfg.BasePath))
	require.NoError(t, err)

	f := &fixture{
		ctx:       context.Background(),
		db:        newTestDB(t),
		cfg:       cfg,
		store:     store,
		metrics:   metrics.New(prometheus.NewRegistry()),
		renderers: renderers,
		policy:    NewPolicy(cfg),
	}
	f.articleRepo = repositories.NewArticleRepository(f.db)
	f.versionRepo = repositories.NewArticleVersionRepository(f.db)
	f.articles = NewArticleService(f.articleRepo, f.policy, cfg, nil)
	f.revisions = NewRevisionService(f.versionRepo, f.policy, nil)
	f.leases = NewLeaseService(store, nil, f.metrics)
	f.edits = NewEditService(f.articles, f.revisions, f.leases, renderers, f.policy, cfg, nil, f.metrics)
	f.views = NewViewService(f.articles, f.revisions, renderers, cfg, nil)

	f.alice = f.createUser(t, "alice", models.RoleWriter)
	f.bob = f.createUser(t, "bob", models.RoleWriter)
	f.moderator = f.createUser(t, "mod", models.RoleEditor)
	return f
}

func (f *fixture) createUser(t *testing.T, name string, role models.UserRole) models.Identity {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", Password: "x", Role: role}
	require.NoError(t, f.db.Create(user).Error)
	return user.Identity()
}

// edit runs a full begin/commit cycle as user.
func (f *fixture) edit(t *testing.T, title string, user models.Identity, body string) *models.ArticleVersion {
	t.Helper()
	_, err := f.edits.BeginEdit(f.ctx, title, user)
	require.NoError(t, err)
	version, err := f.edits.CommitEdit(f.ctx, title, user, models.EditRequest{Body: body, Comment: "edit"})
	require.NoError(t, err)
	return version
}

func (f *fixture) article(t *testing.T, title string) *models.Article {
	t.Helper()
	article, err := f.articles.Resolve(f.ctx, title)
	require.NoError(t, err)
	return article
}

// insertVersion stores a version with an explicit timestamp.
func (f *fixture) insertVersion(t *testing.T, article *models.Article, number int, at time.Time) {
	t.Helper()
	require.NoError(t, f.versionRepo.Create(f.ctx, &models.ArticleVersion{
		ArticleID: article.ID,
		Number:    number,
		Body:      models.Markup{Raw: "body", MarkupType: markup.TypePlain},
		Timestamp: at.UTC(),
	}))
}
