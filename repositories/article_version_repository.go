package repositories

import (
	"context"
	"fmt"

	"wiki-engine/models"

	"gorm.io/gorm"
)

type ArticleVersionRepository interface {
	Create(ctx context.Context, version *models.ArticleVersion) error
	Latest(ctx context.Context, articleID uint) (*models.ArticleVersion, error)
	GetByNumber(ctx context.Context, articleID uint, number int) (*models.ArticleVersion, error)
	GetVersions(ctx context.Context, articleID uint) ([]models.ArticleVersion, error)
	Count(ctx context.Context, articleID uint) (int64, error)
	SetRemoved(ctx context.Context, articleID uint, number int, removed bool) error
	Recent(ctx context.Context, filter RecentFilter) ([]models.ArticleVersion, error)
}

// RecentFilter narrows Recent. Private articles are left out unless
// AllPrivate is set or the article was created by Viewer.
type RecentFilter struct {
	ArticleID  *uint
	Viewer     *uint
	AllPrivate bool
	Limit      int
}

type articleVersionRepository struct {
	db *gorm.DB
}

func NewArticleVersionRepository(db *gorm.DB) ArticleVersionRepository {
	return &articleVersionRepository{db: db}
}

// Create inserts version. A second writer racing for the same number hits
// the (article_id, number) index and gets ErrorConflict.
func (r *articleVersionRepository) Create(ctx context.Context, version *models.ArticleVersion) error {
	err := r.db.WithContext(ctx).Create(version).Error
	return translate(err, nil, models.ErrorConflict{
		Message: fmt.Sprintf("version %d of article %d already exists", version.Number, version.ArticleID),
	})
}

func (r *articleVersionRepository) Latest(ctx context.Context, articleID uint) (*models.ArticleVersion, error) {
	var version models.ArticleVersion
	err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("number desc").
		First(&version).Error
	if err != nil {
		return nil, translate(err, models.ErrorNoVersions{ArticleID: articleID}, nil)
	}
	return &version, nil
}

func (r *articleVersionRepository) GetByNumber(ctx context.Context, articleID uint, number int) (*models.ArticleVersion, error) {
	var version models.ArticleVersion
	err := r.db.WithContext(ctx).
		Where("article_id = ? AND number = ?", articleID, number).
		First(&version).Error
	if err != nil {
		return nil, translate(err, models.ErrorNotFound{
			Message: fmt.Sprintf("article %d has no version %d", articleID, number),
		}, nil)
	}
	return &version, nil
}

// GetVersions lists the visible history, oldest first.
func (r *articleVersionRepository) GetVersions(ctx context.Context, articleID uint) ([]models.ArticleVersion, error) {
	var versions []models.ArticleVersion
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("article_id = ? AND removed = ?", articleID, false).
		Order("timestamp asc").
		Order("number asc").
		Find(&versions).Error
	return versions, err
}

func (r *articleVersionRepository) Count(ctx context.Context, articleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ArticleVersion{}).Where("article_id = ?", articleID).Count(&count).Error
	return count, err
}

func (r *articleVersionRepository) SetRemoved(ctx context.Context, articleID uint, number int, removed bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.ArticleVersion{}).
		Where("article_id = ? AND number = ?", articleID, number).
		Update("removed", removed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Setting the flag to its current value also reports zero rows on
		// some drivers, so confirm the row is really missing.
		if _, err := r.GetByNumber(ctx, articleID, number); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns the newest visible versions, for one article or all of them.
// Visibility is decided in the query so private rows never eat into Limit.
func (r *articleVersionRepository) Recent(ctx context.Context, filter RecentFilter) ([]models.ArticleVersion, error) {
	var versions []models.ArticleVersion
	query := r.db.WithContext(ctx).
		Preload("Article").
		Preload("Author").
		Joins("JOIN articles ON articles.id = article_versions.article_id").
		Where("article_versions.removed = ?", false)
	if filter.ArticleID != nil {
		query = query.Where("article_versions.article_id = ?", *filter.ArticleID)
	}
	if !filter.AllPrivate {
		if filter.Viewer != nil {
			query = query.Where("articles.status <> ? OR articles.creator_id = ?", models.StatusPrivate, *filter.Viewer)
		} else {
			query = query.Where("articles.status <> ?", models.StatusPrivate)
		}
	}
	err := query.
		Order("article_versions.timestamp desc").
		Order("article_versions.id desc").
		Limit(filter.Limit).
		Find(&versions).Error
	return versions, err
}
