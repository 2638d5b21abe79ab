package repositories

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"wiki-engine/models"

	"gorm.io/gorm"
)

type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id uint) (*models.Article, error)
	GetByTitle(ctx context.Context, title string) (*models.Article, error)
	GetList(ctx context.Context, filter ArticleFilter) ([]models.Article, int64, error)
	UpdateStatus(ctx context.Context, article *models.Article, status models.ArticleStatus) error
	Rename(ctx context.Context, article *models.Article, newTitle string, stub *models.Article) error
	LockStale(ctx context.Context, cutoff time.Time) ([]uint, error)
}

// ArticleFilter narrows GetList. Private articles are returned only when
// AllPrivate is set or they belong to PrivateOwner.
type ArticleFilter struct {
	Status           models.ArticleStatus
	Section          string
	IncludeRedirects bool
	AllPrivate       bool
	PrivateOwner     *uint
	Page             int
	Limit            int
}

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

// Create inserts article. A redirect stub holding the same title is replaced.
func (r *articleRepository) Create(ctx context.Context, article *models.Article) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := dropStub(tx, article.Title, 0); err != nil {
			return err
		}
		return tx.Create(article).Error
	})
	return translate(err, nil, models.ErrorDuplicateTitle{Title: article.Title})
}

func (r *articleRepository) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).First(&article, id).Error
	if err != nil {
		return nil, translate(err, models.ErrorNotFound{Message: fmt.Sprintf("article %d not found", id)}, nil)
	}
	return &article, nil
}

func (r *articleRepository) GetByTitle(ctx context.Context, title string) (*models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).Where("title = ?", title).First(&article).Error
	if err != nil {
		return nil, translate(err, models.ErrorNotFound{Message: fmt.Sprintf("article %q not found", title)}, nil)
	}
	return &article, nil
}

func (r *articleRepository) GetList(ctx context.Context, filter ArticleFilter) ([]models.Article, int64, error) {
	var articles []models.Article
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Article{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.AllPrivate {
		if filter.PrivateOwner != nil {
			query = query.Where("(status <> ? OR creator_id = ?)", models.StatusPrivate, *filter.PrivateOwner)
		} else {
			query = query.Where("status <> ?", models.StatusPrivate)
		}
	}
	if !filter.IncludeRedirects {
		query = query.Where("redirect_to_id IS NULL")
	}
	if filter.Section != "" {
		// SUBSTR instead of LIKE: underscores in titles are LIKE wildcards.
		prefix := filter.Section + "/"
		query = query.Where("SUBSTR(title, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := query.Order("title asc").Offset(offset).Limit(filter.Limit).Find(&articles).Error

	return articles, total, err
}

func (r *articleRepository) UpdateStatus(ctx context.Context, article *models.Article, status models.ArticleStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", article.ID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrorNotFound{Message: fmt.Sprintf("article %d not found", article.ID)}
	}
	article.Status = status
	return nil
}

// Rename moves article to newTitle and creates stub under the old title in
// one transaction. The title index is unique, so the original row has to
// leave the old title before the stub can take it.
func (r *articleRepository) Rename(ctx context.Context, article *models.Article, newTitle string, stub *models.Article) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := dropStub(tx, newTitle, article.ID); err != nil {
			return err
		}
		res := tx.Model(&models.Article{}).Where("id = ?", article.ID).Update("title", newTitle)
		if res.Error != nil {
			return translate(res.Error, nil, models.ErrorDuplicateTitle{Title: newTitle})
		}
		if res.RowsAffected == 0 {
			return models.ErrorNotFound{Message: fmt.Sprintf("article %d not found", article.ID)}
		}
		return translate(tx.Create(stub).Error, nil, models.ErrorDuplicateTitle{Title: stub.Title})
	})
	if err != nil {
		return err
	}
	article.Title = newTitle
	return nil
}

// LockStale locks every public article whose first version is not newer
// than cutoff and returns the ids it locked.
func (r *articleRepository) LockStale(ctx context.Context, cutoff time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		firstEdits := tx.Model(&models.ArticleVersion{}).
			Select("article_id").
			Group("article_id").
			Having("MIN(timestamp) <= ?", cutoff)

		err := tx.Model(&models.Article{}).
			Where("status = ? AND id IN (?)", models.StatusPublic, firstEdits).
			Order("id asc").
			Pluck("id", &ids).Error
		if err != nil || len(ids) == 0 {
			return err
		}

		return tx.Model(&models.Article{}).
			Where("id IN ? AND status = ?", ids, models.StatusPublic).
			Update("status", models.StatusLocked).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// dropStub deletes the redirect stub titled title, unless it is keepID.
// Redirects that pointed at the stub are moved to the stub's own target.
func dropStub(tx *gorm.DB, title string, keepID uint) error {
	var stubs []models.Article
	err := tx.Where("title = ? AND redirect_to_id IS NOT NULL AND id <> ?", title, keepID).Limit(1).Find(&stubs).Error
	if err != nil || len(stubs) == 0 {
		return err
	}
	stub := stubs[0]

	err = tx.Model(&models.Article{}).
		Where("redirect_to_id = ?", stub.ID).
		Update("redirect_to_id", *stub.RedirectToID).Error
	if err != nil {
		return err
	}
	if err := tx.Where("article_id = ?", stub.ID).Delete(&models.ArticleVersion{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Article{}, stub.ID).Error
}
