package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"wiki-engine/config"
	"wiki-engine/markup"
	"wiki-engine/metrics"
	"wiki-engine/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("wiki-engine/services")

const maxCommentLength = 255

// EditService coordinates edits so that two writers never derive the same
// next version number. Entering edit mode takes the article's write lease;
// submitting requires still holding it.
type EditService interface {
	BeginEdit(ctx context.Context, title string, user models.Identity) (*models.EditSession, error)
	CommitEdit(ctx context.Context, title string, user models.Identity, req models.EditRequest) (*models.ArticleVersion, error)
	Revert(ctx context.Context, title string, number int, user models.Identity) (*models.ArticleVersion, error)
	BreakLease(ctx context.Context, title string, user models.Identity) (bool, error)
}

type editService struct {
	articles  ArticleService
	revisions RevisionService
	leases    LeaseService
	renderers *markup.Registry
	policy    Policy
	cfg       config.WikiConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewEditService(
	articles ArticleService,
	revisions RevisionService,
	leases LeaseService,
	renderers *markup.Registry,
	policy Policy,
	cfg config.WikiConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) EditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &editService{
		articles:  articles,
		revisions: revisions,
		leases:    leases,
		renderers: renderers,
		policy:    policy,
		cfg:       cfg,
		logger:    logger.Named("edit"),
		metrics:   m,
	}
}

func (s *editService) BeginEdit(ctx context.Context, title string, user models.Identity) (*models.EditSession, error) {
	if !s.policy.EditorCapable(user) {
		return nil, deny(user, "you may not edit articles")
	}

	title = models.NormalizeTitle(title)
	article, err := s.resolve(ctx, title)
	if models.IsNotFound(err) {
		if err := models.ValidateTitle(title); err != nil {
			return nil, err
		}
		return &models.EditSession{Title: title, MarkupType: s.cfg.DefaultMarkupType}, nil
	}
	if err != nil {
		return nil, err
	}
	if !s.articles.IsEditableBy(article, user) {
		return nil, deny(user, "you may not edit this article")
	}

	key := ArticleLeaseKey(article.ID)
	acquired, err := s.leases.Acquire(ctx, key, user.LeaseHolder(), s.cfg.WriteLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, s.contention(ctx, key)
	}

	session := &models.EditSession{
		Title:      article.Title,
		Article:    article,
		MarkupType: s.cfg.DefaultMarkupType,
		LeaseTTL:   int(s.cfg.WriteLockTTL / time.Second),
	}
	latest, err := s.revisions.Latest(ctx, article)
	switch {
	case err == nil:
		number := latest.Number
		session.Body = latest.Body.Raw
		session.MarkupType = latest.Body.MarkupType
		session.BaseNumber = &number
	case models.IsNoVersions(err):
	default:
		return nil, err
	}

	s.logger.Debug("edit.begin", zap.Uint("article_id", article.ID), zap.String("holder", user.LeaseHolder()))
	return session, nil
}

func (s *editService) CommitEdit(ctx context.Context, title string, user models.Identity, req models.EditRequest) (version *models.ArticleVersion, err error) {
	title = models.NormalizeTitle(title)
	ctx, span := tracer.Start(ctx, "edit.commit")
	span.SetAttributes(attribute.String("wiki.title", title), attribute.String("wiki.holder", user.LeaseHolder()))

	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		s.finish(span, outcome, start, err)
	}()

	if !s.policy.EditorCapable(user) {
		outcome = metrics.OutcomeDenied
		return nil, deny(user, "you may not edit articles")
	}
	body, err := s.validate(req)
	if err != nil {
		outcome = metrics.OutcomeInvalid
		return nil, err
	}

	article, err := s.resolve(ctx, title)
	if models.IsNotFound(err) {
		// New articles skip the lease; the unique title arbitrates creators.
		article, err = s.articles.CreateArticle(ctx, title, user)
		if err != nil {
			var invalid models.ErrorValidation
			if errors.As(err, &invalid) {
				outcome = metrics.OutcomeInvalid
			}
			return nil, err
		}
		version, err = s.revisions.Append(ctx, article, user, body, req.Comment)
		if err != nil {
			return nil, err
		}
		outcome = metrics.OutcomeCreated
		span.SetAttributes(attribute.Int("wiki.version", version.Number))
		s.logger.Info("edit.commit.created", zap.Uint("article_id", article.ID), zap.String("title", article.Title), zap.String("holder", user.LeaseHolder()))
		return version, nil
	}
	if err != nil {
		return nil, err
	}
	if !s.articles.IsEditableBy(article, user) {
		outcome = metrics.OutcomeDenied
		return nil, deny(user, "you may not edit this article")
	}

	version, err = s.appendUnderLease(ctx, article, user, body, req.Comment)
	if err != nil {
		var lost models.ErrorLockLost
		if errors.As(err, &lost) {
			outcome = metrics.OutcomeLockLost
		}
		return nil, err
	}

	outcome = metrics.OutcomeSaved
	span.SetAttributes(attribute.Int("wiki.version", version.Number))
	s.logger.Info("edit.commit.saved",
		zap.Uint("article_id", article.ID),
		zap.Int("number", version.Number),
		zap.String("holder", user.LeaseHolder()))
	return version, nil
}

func (s *editService) Revert(ctx context.Context, title string, number int, user models.Identity) (version *models.ArticleVersion, err error) {
	title = models.NormalizeTitle(title)
	ctx, span := tracer.Start(ctx, "edit.revert")
	span.SetAttributes(attribute.String("wiki.title", title), attribute.Int("wiki.revert_to", number))

	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		s.finish(span, outcome, start, err)
	}()

	if !s.policy.ModeratorCapable(user) {
		outcome = metrics.OutcomeDenied
		return nil, deny(user, "only moderators may revert articles")
	}

	article, err := s.resolve(ctx, title)
	if err != nil {
		return nil, err
	}
	source, err := s.revisions.Get(ctx, article, number)
	if err != nil {
		return nil, err
	}

	key := ArticleLeaseKey(article.ID)
	acquired, err := s.leases.Acquire(ctx, key, user.LeaseHolder(), s.cfg.WriteLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		outcome = metrics.OutcomeLockLost
		return nil, s.contention(ctx, key)
	}

	version, err = s.appendUnderLease(ctx, article, user, source.Body, fmt.Sprintf("reverted to r%d", number))
	if err != nil {
		return nil, err
	}

	outcome = metrics.OutcomeReverted
	s.logger.Info("edit.revert",
		zap.Uint("article_id", article.ID),
		zap.Int("source", number),
		zap.Int("number", version.Number),
		zap.String("holder", user.LeaseHolder()))
	return version, nil
}

func (s *editService) BreakLease(ctx context.Context, title string, user models.Identity) (bool, error) {
	if !s.policy.ModeratorCapable(user) {
		return false, deny(user, "only moderators may break edit locks")
	}
	article, err := s.resolve(ctx, title)
	if err != nil {
		return false, err
	}
	released, err := s.leases.ForceRelease(ctx, ArticleLeaseKey(article.ID))
	if err != nil {
		return false, err
	}
	s.logger.Info("edit.lease.broken", zap.Uint("article_id", article.ID), zap.Bool("released", released), zap.String("actor", user.LeaseHolder()))
	return released, nil
}

// resolve looks up title and follows a redirect stub, so edits always land
// on the article readers are sent to.
func (s *editService) resolve(ctx context.Context, title string) (*models.Article, error) {
	article, err := s.articles.Resolve(ctx, title)
	if err != nil || !article.IsRedirect() {
		return article, err
	}
	return s.articles.FollowRedirect(ctx, article)
}

// appendUnderLease re-checks the caller's lease, appends and releases it.
// A missing lease or a number collision is reported as ErrorLockLost.
func (s *editService) appendUnderLease(ctx context.Context, article *models.Article, user models.Identity, body models.Markup, comment string) (*models.ArticleVersion, error) {
	key := ArticleLeaseKey(article.ID)
	holder := user.LeaseHolder()

	acquired, err := s.leases.Acquire(ctx, key, holder, s.cfg.WriteLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.logger.Info("edit.commit.lock_lost", zap.Uint("article_id", article.ID), zap.String("holder", holder))
		return nil, models.ErrorLockLost{}
	}

	version, err := s.revisions.Append(ctx, article, user, body, comment)
	if err != nil {
		s.release(ctx, key, holder)
		var conflict models.ErrorConflict
		if errors.As(err, &conflict) {
			s.logger.Warn("edit.commit.number_collision", zap.Uint("article_id", article.ID), zap.String("holder", holder))
			return nil, models.ErrorLockLost{}
		}
		return nil, err
	}

	s.release(ctx, key, holder)
	return version, nil
}

// release gives the lease back after the version is stored. Failing to do so
// only delays the next editor until expiry.
func (s *editService) release(ctx context.Context, key, holder string) {
	if _, err := s.leases.Release(ctx, key, holder); err != nil {
		s.logger.Warn("edit.lease.release_failed", zap.String("key", key), zap.String("holder", holder), zap.Error(err))
	}
}

func (s *editService) contention(ctx context.Context, key string) error {
	lease, ok, err := s.leases.Inspect(ctx, key)
	if err != nil {
		return err
	}
	contended := models.ErrorLockContention{}
	if ok {
		contended.Holder = lease.Holder
		contended.ExpiresAt = lease.ExpiresAt
		s.logger.Debug("edit.begin.contended", zap.String("key", key), zap.String("owner", lease.Holder), zap.String("expires", lease.ExpiresIn()))
	}
	return contended
}

func (s *editService) validate(req models.EditRequest) (models.Markup, error) {
	if req.Body == "" {
		return models.Markup{}, models.ErrorValidation{Field: "body", Message: "body is required"}
	}
	markupType := req.MarkupType
	if markupType == "" {
		markupType = s.cfg.DefaultMarkupType
	}
	if !s.renderers.Enabled(markupType) {
		return models.Markup{}, models.ErrorValidation{Field: "markup_type", Message: fmt.Sprintf("markup type %q is not enabled", markupType)}
	}
	if utf8.RuneCountInString(req.Comment) > maxCommentLength {
		return models.Markup{}, models.ErrorValidation{Field: "comment", Message: "comment must be at most 255 characters"}
	}
	return models.Markup{Raw: req.Body, MarkupType: markupType}, nil
}

func (s *editService) finish(span trace.Span, outcome string, start time.Time, err error) {
	s.metrics.ObserveEdit(outcome, time.Since(start))
	span.SetAttributes(attribute.String("wiki.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}
