package services

import (
	"context"
	"errors"

	"wiki-engine/config"
	"wiki-engine/markup"
	"wiki-engine/models"

	"go.uber.org/zap"
)

type ViewService interface {
	// View loads an article version for display. A nil number means the
	// latest version.
	View(ctx context.Context, title string, number *int, viewer models.Identity) (*models.ArticleView, error)
	Preview(markupType, body string) (string, error)
}

type viewService struct {
	articles  ArticleService
	revisions RevisionService
	renderers *markup.Registry
	cfg       config.WikiConfig
	logger    *zap.Logger
}

func NewViewService(articles ArticleService, revisions RevisionService, renderers *markup.Registry, cfg config.WikiConfig, logger *zap.Logger) ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &viewService{
		articles:  articles,
		revisions: revisions,
		renderers: renderers,
		cfg:       cfg,
		logger:    logger.Named("view"),
	}
}

func (s *viewService) View(ctx context.Context, title string, number *int, viewer models.Identity) (*models.ArticleView, error) {
	article, err := s.articles.Resolve(ctx, title)
	if err != nil {
		return nil, err
	}

	if article.IsRedirect() {
		target, err := s.articles.FollowRedirect(ctx, article)
		if err != nil {
			return nil, err
		}
		return &models.ArticleView{Article: article, RedirectTo: target}, nil
	}

	if !s.articles.IsViewableBy(article, viewer) {
		return nil, deny(viewer, "this article is private")
	}

	canModerate := s.articles.CanModerate(viewer)
	view := &models.ArticleView{
		Article:     article,
		Editable:    s.articles.IsEditableBy(article, viewer),
		CanModerate: canModerate,
	}
	// Deleted articles show only their status to non-moderators.
	if article.IsDeleted() && !canModerate {
		return view, nil
	}

	latest, err := s.revisions.Latest(ctx, article)
	if models.IsNoVersions(err) {
		view.IsLatest = true
		return view, nil
	}
	if err != nil {
		return nil, err
	}

	version := latest
	if number != nil && *number != latest.Number {
		version, err = s.revisions.Get(ctx, article, *number)
		if err != nil {
			return nil, err
		}
	}
	if version.Removed && !canModerate {
		return nil, models.ErrorNotFound{Message: "this version has been removed"}
	}

	view.Version = version
	view.IsLatest = version.Number == latest.Number
	view.HTML = s.render(version.Body)
	return view, nil
}

func (s *viewService) Preview(markupType, body string) (string, error) {
	if markupType == "" {
		markupType = s.cfg.DefaultMarkupType
	}
	html, err := s.renderers.Render(markupType, body)
	if errors.Is(err, markup.ErrUnknownMarkupType) {
		return "", models.ErrorValidation{Field: "markup_type", Message: err.Error()}
	}
	return html, err
}

// render falls back to the default markup type when a stored version uses a
// type that has since been disabled.
func (s *viewService) render(body models.Markup) string {
	html, err := s.renderers.Render(body.MarkupType, body.Raw)
	if err == nil {
		return html
	}
	s.logger.Warn("view.render.fallback", zap.String("markup_type", body.MarkupType), zap.Error(err))
	html, err = s.renderers.Render(s.cfg.DefaultMarkupType, body.Raw)
	if err != nil {
		return ""
	}
	return html
}
