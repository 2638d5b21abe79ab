package services

import (
	"context"
	"time"

	"wiki-engine/config"
	"wiki-engine/metrics"
	"wiki-engine/repositories"

	"go.uber.org/zap"
)

// AutolockService locks public articles once their first version is older
// than the configured age.
type AutolockService interface {
	LockStale(ctx context.Context) (int, error)
	// Run calls LockStale every interval until ctx is done.
	Run(ctx context.Context, interval time.Duration) error
}

type autolockService struct {
	articleRepo repositories.ArticleRepository
	after       time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewAutolockService(articleRepo repositories.ArticleRepository, cfg config.WikiConfig, logger *zap.Logger, m *metrics.Metrics) AutolockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &autolockService{
		articleRepo: articleRepo,
		after:       cfg.AutolockAfter,
		logger:      logger.Named("autolock"),
		metrics:     m,
		now:         time.Now,
	}
}

func (s *autolockService) LockStale(ctx context.Context) (int, error) {
	if s.after <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.after)
	ids, err := s.articleRepo.LockStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.Autolocked(len(ids))
	if len(ids) > 0 {
		s.logger.Info("autolock.locked", zap.Int("count", len(ids)), zap.Uints("article_ids", ids), zap.Time("cutoff", cutoff))
	}
	return len(ids), nil
}

func (s *autolockService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || s.after <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.LockStale(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("autolock.failed", zap.Error(err))
			}
		}
	}
}
