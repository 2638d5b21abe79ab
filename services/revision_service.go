package services

import (
	"context"
	"time"

	"wiki-engine/models"
	"wiki-engine/repositories"

	"go.uber.org/zap"
)

const defaultRecentChanges = 20

type RevisionService interface {
	Latest(ctx context.Context, article *models.Article) (*models.ArticleVersion, error)
	Get(ctx context.Context, article *models.Article, number int) (*models.ArticleVersion, error)
	// Append stores body as the next version. The caller must hold the
	// article's write lease unless the article was just created.
	Append(ctx context.Context, article *models.Article, author models.Identity, body models.Markup, comment string) (*models.ArticleVersion, error)
	History(ctx context.Context, article *models.Article) ([]models.ArticleVersion, error)
	Count(ctx context.Context, article *models.Article) (int64, error)
	Diff(ctx context.Context, article *models.Article, from, to int) (*models.ArticleDiff, error)
	SetRemoved(ctx context.Context, article *models.Article, number int, removed bool, actor models.Identity) error
	RecentChanges(ctx context.Context, article *models.Article, limit int, viewer models.Identity) ([]models.ArticleVersion, error)
}

type revisionService struct {
	versionRepo repositories.ArticleVersionRepository
	policy      Policy
	logger      *zap.Logger
	now         func() time.Time
}

func NewRevisionService(versionRepo repositories.ArticleVersionRepository, policy Policy, logger *zap.Logger) RevisionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &revisionService{
		versionRepo: versionRepo,
		policy:      policy,
		logger:      logger.Named("revisions"),
		now:         time.Now,
	}
}

func (s *revisionService) Latest(ctx context.Context, article *models.Article) (*models.ArticleVersion, error) {
	return s.versionRepo.Latest(ctx, article.ID)
}

func (s *revisionService) Get(ctx context.Context, article *models.Article, number int) (*models.ArticleVersion, error) {
	return s.versionRepo.GetByNumber(ctx, article.ID, number)
}

func (s *revisionService) Append(ctx context.Context, article *models.Article, author models.Identity, body models.Markup, comment string) (*models.ArticleVersion, error) {
	number := 0
	timestamp := s.now().UTC()

	latest, err := s.versionRepo.Latest(ctx, article.ID)
	switch {
	case err == nil:
		number = latest.Number + 1
		// Keep timestamps ordered like numbers even if the clock steps back.
		if timestamp.Before(latest.Timestamp) {
			timestamp = latest.Timestamp
		}
	case models.IsNoVersions(err):
	default:
		return nil, err
	}

	version := &models.ArticleVersion{
		ArticleID: article.ID,
		Number:    number,
		AuthorID:  author.Ref(),
		Body:      body,
		Comment:   comment,
		Timestamp: timestamp,
	}
	if err := s.versionRepo.Create(ctx, version); err != nil {
		return nil, err
	}

	s.logger.Debug("revision.append",
		zap.Uint("article_id", article.ID),
		zap.Int("number", number),
		zap.String("author", author.LeaseHolder()))
	return version, nil
}

func (s *revisionService) History(ctx context.Context, article *models.Article) ([]models.ArticleVersion, error) {
	return s.versionRepo.GetVersions(ctx, article.ID)
}

func (s *revisionService) Count(ctx context.Context, article *models.Article) (int64, error) {
	return s.versionRepo.Count(ctx, article.ID)
}

func (s *revisionService) Diff(ctx context.Context, article *models.Article, from, to int) (*models.ArticleDiff, error) {
	fromVersion, err := s.versionRepo.GetByNumber(ctx, article.ID, from)
	if err != nil {
		return nil, err
	}
	toVersion, err := s.versionRepo.GetByNumber(ctx, article.ID, to)
	if err != nil {
		return nil, err
	}
	return diffVersions(fromVersion, toVersion)
}

func (s *revisionService) SetRemoved(ctx context.Context, article *models.Article, number int, removed bool, actor models.Identity) error {
	if !s.policy.ModeratorCapable(actor) {
		return deny(actor, "only moderators may hide or restore versions")
	}
	if err := s.versionRepo.SetRemoved(ctx, article.ID, number, removed); err != nil {
		return err
	}
	s.logger.Info("revision.removed",
		zap.Uint("article_id", article.ID),
		zap.Int("number", number),
		zap.Bool("removed", removed),
		zap.String("actor", actor.LeaseHolder()))
	return nil
}

// RecentChanges lists the newest versions of article, or of the whole wiki
// when article is nil, leaving out private articles viewer may not see.
func (s *revisionService) RecentChanges(ctx context.Context, article *models.Article, limit int, viewer models.Identity) ([]models.ArticleVersion, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultRecentChanges
	}
	filter := repositories.RecentFilter{
		Viewer:     viewer.Ref(),
		AllPrivate: s.policy.ModeratorCapable(viewer),
		Limit:      limit,
	}
	if article != nil {
		filter.ArticleID = &article.ID
	}
	return s.versionRepo.Recent(ctx, filter)
}
