package handlers

import (
	"net/http"
	"strconv"

	"wiki-engine/config"
	"wiki-engine/helper"
	"wiki-engine/markup"
	"wiki-engine/middleware"
	"wiki-engine/models"
	"wiki-engine/services"

	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	articleService  services.ArticleService
	revisionService services.RevisionService
	viewService     services.ViewService
	linker          *markup.Linker
	cfg             config.WikiConfig
	Helper          *helper.HTTPHelper
}

func NewArticleHandler(
	articleService services.ArticleService,
	revisionService services.RevisionService,
	viewService services.ViewService,
	linker *markup.Linker,
	cfg config.WikiConfig,
	h *helper.HTTPHelper,
) *ArticleHandler {
	return &ArticleHandler{
		articleService:  articleService,
		revisionService: revisionService,
		viewService:     viewService,
		linker:          linker,
		cfg:             cfg,
		Helper:          h,
	}
}

func (h *ArticleHandler) GetArticles(c *gin.Context) {
	var params models.ArticleListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	articles, total, err := h.articleService.GetArticles(c.Request.Context(), params, middleware.Identity(c))
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}

	h.Helper.SendSuccess(c, "Articles loaded", gin.H{
		"articles": articles,
		"paging":   h.Helper.GeneratePaging(c, 0, 0, params.Limit, params.Page, int(total)),
	})
}

// GetArticle shows the latest version. Non-canonical titles and redirect
// stubs answer with a redirect; missing articles send editors to the edit form.
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	if h.redirectToCanonical(c, "") {
		return
	}
	title := c.Param("title")

	view, err := h.viewService.View(c.Request.Context(), title, nil, middleware.Identity(c))
	if err != nil {
		if models.IsNotFound(err) && h.cfg.CreateMissingArticles {
			if _, resolveErr := h.articleService.Resolve(c.Request.Context(), title); models.IsNotFound(resolveErr) {
				c.Redirect(http.StatusFound, h.linker.ArticleURL(title)+"/edit")
				return
			}
		}
		h.Helper.SendModelError(c, err)
		return
	}
	if view.RedirectTo != nil {
		c.Redirect(http.StatusFound, h.linker.ArticleURL(view.RedirectTo.Title))
		return
	}

	h.Helper.SendSuccess(c, "Article loaded", view)
}

func (h *ArticleHandler) GetArticleVersion(c *gin.Context) {
	number, ok := h.versionNumber(c)
	if !ok {
		return
	}
	if h.redirectToCanonical(c, "/history/"+strconv.Itoa(number)) {
		return
	}

	view, err := h.viewService.View(c.Request.Context(), c.Param("title"), &number, middleware.Identity(c))
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}
	if view.RedirectTo != nil {
		c.Redirect(http.StatusFound, h.linker.ArticleURL(view.RedirectTo.Title)+"/history/"+strconv.Itoa(number))
		return
	}

	h.Helper.SendSuccess(c, "Article version loaded", view)
}

func (h *ArticleHandler) GetHistory(c *gin.Context) {
	article, ok := h.viewable(c)
	if !ok {
		return
	}

	versions, err := h.revisionService.History(c.Request.Context(), article)
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "History loaded", gin.H{
		"article":  article,
		"versions": versions,
	})
}

func (h *ArticleHandler) GetDiff(c *gin.Context) {
	var params models.DiffParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}
	article, ok := h.viewable(c)
	if !ok {
		return
	}

	diff, err := h.revisionService.Diff(c.Request.Context(), article, *params.From, *params.To)
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Diff loaded", diff)
}

func (h *ArticleHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}
	article, err := h.articleService.Resolve(c.Request.Context(), c.Param("title"))
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	if err := h.articleService.SetStatus(c.Request.Context(), article, req.Status, middleware.Identity(c)); err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, h.linker.ArticleURL(article.Title))
}

func (h *ArticleHandler) Rename(c *gin.Context) {
	var req models.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}
	article, err := h.articleService.Resolve(c.Request.Context(), c.Param("title"))
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	if _, err := h.articleService.Rename(c.Request.Context(), article, req.NewTitle, middleware.Identity(c)); err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, h.linker.ArticleURL(article.Title))
}

func (h *ArticleHandler) SetVersionRemoved(c *gin.Context) {
	number, ok := h.versionNumber(c)
	if !ok {
		return
	}
	var req models.SetRemovedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}
	article, err := h.articleService.Resolve(c.Request.Context(), c.Param("title"))
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	if err := h.revisionService.SetRemoved(c.Request.Context(), article, number, req.Removed, middleware.Identity(c)); err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, h.linker.ArticleURL(article.Title)+"/history")
}

// GetChanges lists recent versions of the whole wiki, or of one article when
// the route carries a title.
func (h *ArticleHandler) GetChanges(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	viewer := middleware.Identity(c)

	var article *models.Article
	if c.Param("title") != "" {
		var ok bool
		if article, ok = h.viewable(c); !ok {
			return
		}
	}

	versions, err := h.revisionService.RecentChanges(c.Request.Context(), article, limit, viewer)
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Changes loaded", versions)
}

// redirectToCanonical answers with 301 when the title in the path is not in
// normalized form.
func (h *ArticleHandler) redirectToCanonical(c *gin.Context, suffix string) bool {
	raw := c.Param("title")
	title := models.NormalizeTitle(raw)
	if title == raw || title == "" {
		return false
	}
	location := h.linker.ArticleURL(title) + suffix
	if c.Request.URL.RawQuery != "" {
		location += "?" + c.Request.URL.RawQuery
	}
	c.Redirect(http.StatusMovedPermanently, location)
	return true
}

func (h *ArticleHandler) viewable(c *gin.Context) (*models.Article, bool) {
	article, err := h.articleService.Resolve(c.Request.Context(), c.Param("title"))
	if err != nil {
		h.Helper.SendModelError(c, err)
		return nil, false
	}
	viewer := middleware.Identity(c)
	if !h.articleService.IsViewableBy(article, viewer) {
		if viewer.IsAuthenticated() {
			h.Helper.SendModelError(c, models.ErrorPermissionDenied{Message: "this article is private"})
		} else {
			h.Helper.SendModelError(c, models.ErrorUnauthorized{Message: "authentication required"})
		}
		return nil, false
	}
	return article, true
}

func (h *ArticleHandler) versionNumber(c *gin.Context) (int, bool) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 0 {
		h.Helper.SendModelError(c, models.ErrorValidation{Field: "number", Message: "version number must be a non-negative integer"})
		return 0, false
	}
	return number, true
}
