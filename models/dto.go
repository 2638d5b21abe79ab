package models

// RegisterRequest carries no role: self-registered users are always writers.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// EditRequest is the submitted edit form.
type EditRequest struct {
	Body       string `json:"body" binding:"required"`
	MarkupType string `json:"markup_type"`
	Comment    string `json:"comment" binding:"max=255"`
}

// EditSession is the pre-seeded edit form returned when entering edit mode.
type EditSession struct {
	Title      string   `json:"title"`
	Article    *Article `json:"article,omitempty"`
	Body       string   `json:"body"`
	MarkupType string   `json:"markup_type"`
	BaseNumber *int     `json:"base_number,omitempty"`
	LeaseTTL   int      `json:"lease_ttl_seconds,omitempty"`
}

type UpdateStatusRequest struct {
	Status ArticleStatus `json:"status" binding:"required,oneof=public locked deleted private"`
}

type RenameRequest struct {
	NewTitle string `json:"new_title" binding:"required,wikititle"`
}

type RevertRequest struct {
	Revision int `json:"revision" binding:"min=0"`
}

type SetRemovedRequest struct {
	Removed bool `json:"removed"`
}

type PreviewRequest struct {
	Body       string `json:"body"`
	MarkupType string `json:"markup_type"`
}

// DiffParams are pointers so a missing number fails binding instead of
// turning into version 0.
type DiffParams struct {
	From *int `form:"from" binding:"required,min=0"`
	To   *int `form:"to" binding:"required,min=0"`
}

type ArticleListParams struct {
	Status  string `form:"status"`
	Section string `form:"section"`
	// Redirects includes redirect stubs in the listing.
	Redirects bool `form:"redirects"`
	Page      int  `form:"page,default=1"`
	Limit     int  `form:"limit,default=20"`
}

// ArticleView is everything a caller needs to show one article version.
type ArticleView struct {
	Article     *Article        `json:"article"`
	Version     *ArticleVersion `json:"version,omitempty"`
	HTML        string          `json:"html"`
	IsLatest    bool            `json:"is_latest"`
	Editable    bool            `json:"editable"`
	CanModerate bool            `json:"can_moderate"`
	// RedirectTo is set when the requested title is a redirect stub.
	RedirectTo *Article `json:"redirect_to,omitempty"`
}
