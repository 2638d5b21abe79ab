package models

import (
	"time"
)

// Markup is raw source text tagged with the markup type used to render it.
// Rendering is computed on read and never stored.
type Markup struct {
	Raw        string `json:"raw" gorm:"column:body;type:text"`
	MarkupType string `json:"markup_type" gorm:"column:body_markup_type;size:32;not null"`
}

type ArticleVersion struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ArticleID uint      `json:"article_id" gorm:"not null;uniqueIndex:idx_article_version_number,priority:1"`
	Article   *Article  `json:"article,omitempty" gorm:"foreignKey:ArticleID"`
	Number    int       `json:"number" gorm:"not null;uniqueIndex:idx_article_version_number,priority:2"`
	AuthorID  *uint     `json:"author_id"`
	Author    *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Body      Markup    `json:"body" gorm:"embedded"`
	Comment   string    `json:"comment" gorm:"size:255"`
	Removed   bool      `json:"removed" gorm:"not null;default:false"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
}
