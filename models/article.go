package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type ArticleStatus string

const (
	StatusPublic  ArticleStatus = "public"
	StatusLocked  ArticleStatus = "locked"
	StatusDeleted ArticleStatus = "deleted"
	StatusPrivate ArticleStatus = "private"
)

// MaxTitleLength is measured in runes, after normalization.
const MaxTitleLength = 200

type Article struct {
	ID           uint          `json:"id" gorm:"primarykey"`
	Title        string        `json:"title" gorm:"size:200;uniqueIndex;not null"`
	CreatorID    *uint         `json:"creator_id"`
	Creator      *User         `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Status       ArticleStatus `json:"status" gorm:"size:16;not null;default:'public'"`
	RedirectToID *uint         `json:"redirect_to_id,omitempty" gorm:"index"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Valid reports whether s is one of the known statuses.
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusPublic, StatusLocked, StatusDeleted, StatusPrivate:
		return true
	}
	return false
}

// Restricted statuses need moderator capability to enter, leave or edit under.
func (s ArticleStatus) Restricted() bool {
	return s == StatusLocked || s == StatusDeleted
}

func (a *Article) IsPublic() bool  { return a.Status == StatusPublic }
func (a *Article) IsLocked() bool  { return a.Status == StatusLocked }
func (a *Article) IsDeleted() bool { return a.Status == StatusDeleted }
func (a *Article) IsPrivate() bool { return a.Status == StatusPrivate }

func (a *Article) IsRedirect() bool { return a.RedirectToID != nil }

// CreatedBy reports whether the identity is the article's creator.
// Anonymous identities never match.
func (a *Article) CreatedBy(user Identity) bool {
	return a.CreatorID != nil && user.IsAuthenticated() && *a.CreatorID == user.UserID
}

// DisplayTitle is the last path segment of the title with underscores shown as spaces.
func (a *Article) DisplayTitle() string {
	name := a.Title
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ReplaceAll(name, "_", " ")
}

// SectionName is everything before the last "/" of the title, or "".
func (a *Article) SectionName() string {
	if i := strings.LastIndex(a.Title, "/"); i >= 0 {
		return a.Title[:i]
	}
	return ""
}

// NormalizeTitle trims the title and turns every remaining whitespace rune
// into an underscore, so "Some page" and "Some_page" name the same article.
func NormalizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
}

// ValidateTitle checks an already normalized title.
func ValidateTitle(title string) error {
	switch {
	case title == "":
		return ErrorValidation{Field: "title", Message: "title is required"}
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return ErrorValidation{Field: "title", Message: "title must be at most 200 characters"}
	case strings.ContainsAny(title, "[]|"):
		return ErrorValidation{Field: "title", Message: "title must not contain '[', ']' or '|'"}
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return ErrorValidation{Field: "title", Message: "title must not contain control characters"}
		}
	}
	return nil
}
