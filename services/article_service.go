package services

import (
	"context"
	"fmt"

	"wiki-engine/config"
	"wiki-engine/models"
	"wiki-engine/repositories"

	"go.uber.org/zap"
)

type ArticleService interface {
	CreateArticle(ctx context.Context, title string, creator models.Identity) (*models.Article, error)
	// Resolve looks up an article by title. Redirects are not followed.
	Resolve(ctx context.Context, title string) (*models.Article, error)
	GetArticle(ctx context.Context, id uint) (*models.Article, error)
	FollowRedirect(ctx context.Context, article *models.Article) (*models.Article, error)
	GetArticles(ctx context.Context, params models.ArticleListParams, viewer models.Identity) ([]models.Article, int64, error)
	SetStatus(ctx context.Context, article *models.Article, status models.ArticleStatus, actor models.Identity) error
	// Rename moves article to newTitle and leaves a redirect stub behind.
	Rename(ctx context.Context, article *models.Article, newTitle string, actor models.Identity) (*models.Article, error)
	IsEditableBy(article *models.Article, user models.Identity) bool
	IsViewableBy(article *models.Article, user models.Identity) bool
	CanModerate(user models.Identity) bool
}

type articleService struct {
	articleRepo repositories.ArticleRepository
	policy      Policy
	cfg         config.WikiConfig
	logger      *zap.Logger
}

func NewArticleService(articleRepo repositories.ArticleRepository, policy Policy, cfg config.WikiConfig, logger *zap.Logger) ArticleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &articleService{
		articleRepo: articleRepo,
		policy:      policy,
		cfg:         cfg,
		logger:      logger.Named("articles"),
	}
}

func (s *articleService) CreateArticle(ctx context.Context, title string, creator models.Identity) (*models.Article, error) {
	title = models.NormalizeTitle(title)
	if err := models.ValidateTitle(title); err != nil {
		return nil, err
	}

	if err := s.titleAvailable(ctx, title); err != nil {
		return nil, err
	}

	article := &models.Article{
		Title:     title,
		CreatorID: creator.Ref(),
		Status:    models.StatusPublic,
	}
	// A concurrent creator may still win the race; the unique index reports it.
	if err := s.articleRepo.Create(ctx, article); err != nil {
		return nil, err
	}

	s.logger.Info("article.create", zap.Uint("article_id", article.ID), zap.String("title", title), zap.String("creator", creator.LeaseHolder()))
	return article, nil
}

func (s *articleService) Resolve(ctx context.Context, title string) (*models.Article, error) {
	title = models.NormalizeTitle(title)
	if title == "" {
		return nil, models.ErrorNotFound{Message: "article title is empty"}
	}
	return s.articleRepo.GetByTitle(ctx, title)
}

func (s *articleService) GetArticle(ctx context.Context, id uint) (*models.Article, error) {
	return s.articleRepo.GetByID(ctx, id)
}

func (s *articleService) FollowRedirect(ctx context.Context, article *models.Article) (*models.Article, error) {
	current := article
	for hops := 0; current.IsRedirect(); hops++ {
		if hops >= s.cfg.MaxRedirectHops {
			return nil, models.ErrorRedirectLoop{Title: article.Title, Hops: s.cfg.MaxRedirectHops}
		}
		next, err := s.articleRepo.GetByID(ctx, *current.RedirectToID)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func (s *articleService) GetArticles(ctx context.Context, params models.ArticleListParams, viewer models.Identity) ([]models.Article, int64, error) {
	status := models.ArticleStatus(params.Status)
	if status != "" && !status.Valid() {
		return nil, 0, models.ErrorValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", params.Status)}
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}

	return s.articleRepo.GetList(ctx, repositories.ArticleFilter{
		Status:           status,
		Section:          models.NormalizeTitle(params.Section),
		IncludeRedirects: params.Redirects,
		AllPrivate:       s.policy.ModeratorCapable(viewer),
		PrivateOwner:     viewer.Ref(),
		Page:             params.Page,
		Limit:            params.Limit,
	})
}

func (s *articleService) SetStatus(ctx context.Context, article *models.Article, status models.ArticleStatus, actor models.Identity) error {
	if !status.Valid() {
		return models.ErrorValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	allowed := s.policy.ModeratorCapable(actor)
	if !allowed && !article.Status.Restricted() && !status.Restricted() {
		allowed = article.CreatedBy(actor)
	}
	if !allowed {
		return deny(actor, "you may not change the status of this article")
	}

	previous := article.Status
	if err := s.articleRepo.UpdateStatus(ctx, article, status); err != nil {
		return err
	}
	s.logger.Info("article.status",
		zap.Uint("article_id", article.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.String("actor", actor.LeaseHolder()))
	return nil
}

func (s *articleService) Rename(ctx context.Context, article *models.Article, newTitle string, actor models.Identity) (*models.Article, error) {
	if !s.policy.ModeratorCapable(actor) {
		return nil, deny(actor, "only moderators may rename articles")
	}

	newTitle = models.NormalizeTitle(newTitle)
	if err := models.ValidateTitle(newTitle); err != nil {
		return nil, err
	}
	if err := s.titleAvailable(ctx, newTitle); err != nil {
		return nil, err
	}

	oldTitle := article.Title
	stub := &models.Article{
		Title:        oldTitle,
		CreatorID:    actor.Ref(),
		Status:       models.StatusPublic,
		RedirectToID: &article.ID,
	}
	if err := s.articleRepo.Rename(ctx, article, newTitle, stub); err != nil {
		return nil, err
	}

	s.logger.Info("article.rename",
		zap.Uint("article_id", article.ID),
		zap.String("from", oldTitle),
		zap.String("to", newTitle),
		zap.Uint("stub_id", stub.ID),
		zap.String("actor", actor.LeaseHolder()))
	return stub, nil
}

// titleAvailable accepts titles that are free or held by a redirect stub.
// The repository replaces such a stub when the title is taken over.
func (s *articleService) titleAvailable(ctx context.Context, title string) error {
	existing, err := s.articleRepo.GetByTitle(ctx, title)
	switch {
	case models.IsNotFound(err):
		return nil
	case err != nil:
		return err
	case existing.IsRedirect():
		return nil
	}
	return models.ErrorDuplicateTitle{Title: title}
}

func (s *articleService) IsEditableBy(article *models.Article, user models.Identity) bool {
	switch article.Status {
	case models.StatusPublic:
		return s.policy.EditorCapable(user)
	case models.StatusPrivate:
		return s.policy.ModeratorCapable(user) || (article.CreatedBy(user) && s.policy.EditorCapable(user))
	default:
		return s.policy.ModeratorCapable(user)
	}
}

func (s *articleService) IsViewableBy(article *models.Article, user models.Identity) bool {
	if article.IsPrivate() {
		return article.CreatedBy(user) || s.policy.ModeratorCapable(user)
	}
	return true
}

func (s *articleService) CanModerate(user models.Identity) bool {
	return s.policy.ModeratorCapable(user)
}
