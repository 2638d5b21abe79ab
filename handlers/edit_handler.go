package handlers

import (
	"net/http"

	"wiki-engine/helper"
	"wiki-engine/markup"
	"wiki-engine/middleware"
	"wiki-engine/models"
	"wiki-engine/services"

	"github.com/gin-gonic/gin"
)

type EditHandler struct {
	editService services.EditService
	viewService services.ViewService
	linker      *markup.Linker
	Helper      *helper.HTTPHelper
}

func NewEditHandler(editService services.EditService, viewService services.ViewService, linker *markup.Linker, h *helper.HTTPHelper) *EditHandler {
	return &EditHandler{
		editService: editService,
		viewService: viewService,
		linker:      linker,
		Helper:      h,
	}
}

// BeginEdit takes the write lease and returns the pre-filled edit form.
func (h *EditHandler) BeginEdit(c *gin.Context) {
	session, err := h.editService.BeginEdit(c.Request.Context(), c.Param("title"), middleware.Identity(c))
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Edit session started", session)
}

func (h *EditHandler) CommitEdit(c *gin.Context) {
	var req models.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	if _, err := h.editService.CommitEdit(c.Request.Context(), c.Param("title"), middleware.Identity(c), req); err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, h.linker.ArticleURL(c.Param("title")))
}

func (h *EditHandler) Revert(c *gin.Context) {
	var req models.RevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	if _, err := h.editService.Revert(c.Request.Context(), c.Param("title"), req.Revision, middleware.Identity(c)); err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, h.linker.ArticleURL(c.Param("title")))
}

func (h *EditHandler) BreakLease(c *gin.Context) {
	released, err := h.editService.BreakLease(c.Request.Context(), c.Param("title"), middleware.Identity(c))
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Edit lock cleared", gin.H{"released": released})
}

func (h *EditHandler) Preview(c *gin.Context) {
	var req models.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	html, err := h.viewService.Preview(req.MarkupType, req.Body)
	if err != nil {
		h.Helper.SendModelError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Preview rendered", gin.H{"html": html})
}
