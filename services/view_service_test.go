package services

import (
	"testing"

	"wiki-engine/markup"
	"wiki-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewLatestAndNumbered(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Page", f.alice, "see [[Other page]]")
	f.edit(t, "Page", f.bob, "second")

	view, err := f.views.View(f.ctx, "Page", nil, models.Anonymous())
	require.NoError(t, err)
	assert.Equal(t, 1, view.Version.Number)
	assert.True(t, view.IsLatest)
	assert.False(t, view.Editable)
	assert.False(t, view.CanModerate)
	assert.Equal(t, "<p>second</p>\n", view.HTML)

	zero := 0
	view, err = f.views.View(f.ctx, "Page", &zero, f.bob)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Version.Number)
	assert.False(t, view.IsLatest)
	assert.True(t, view.Editable)
	assert.Equal(t, `<p>see <a href="/wiki/Other_page">Other page</a></p>`+"\n", view.HTML)

	missing := 5
	_, err = f.views.View(f.ctx, "Page", &missing, f.bob)
	assert.True(t, models.IsNotFound(err))

	_, err = f.views.View(f.ctx, "Nope", nil, f.bob)
	assert.True(t, models.IsNotFound(err))
}

func TestViewArticleWithoutVersions(t *testing.T) {
	f := newFixture(t)
	_, err := f.articles.CreateArticle(f.ctx, "Empty", f.alice)
	require.NoError(t, err)

	view, err := f.views.View(f.ctx, "Empty", nil, f.alice)
	require.NoError(t, err)
	assert.Nil(t, view.Version)
	assert.True(t, view.IsLatest)
	assert.Empty(t, view.HTML)
}

func TestViewRedirectStub(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Before", f.alice, "content")
	_, err := f.articles.Rename(f.ctx, f.article(t, "Before"), "After", f.moderator)
	require.NoError(t, err)

	view, err := f.views.View(f.ctx, "Before", nil, models.Anonymous())
	require.NoError(t, err)
	require.NotNil(t, view.RedirectTo)
	assert.Equal(t, "After", view.RedirectTo.Title)
	assert.Nil(t, view.Version)
}

func TestViewPrivateAndDeleted(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Mine", f.alice, "secret")
	mine := f.article(t, "Mine")
	require.NoError(t, f.articles.SetStatus(f.ctx, mine, models.StatusPrivate, f.alice))

	_, err := f.views.View(f.ctx, "Mine", nil, f.bob)
	var denied models.ErrorPermissionDenied
	assert.ErrorAs(t, err, &denied)

	view, err := f.views.View(f.ctx, "Mine", nil, f.alice)
	require.NoError(t, err)
	assert.Equal(t, "<p>secret</p>\n", view.HTML)

	f.edit(t, "Gone", f.alice, "bye")
	gone := f.article(t, "Gone")
	require.NoError(t, f.articles.SetStatus(f.ctx, gone, models.StatusDeleted, f.moderator))

	view, err = f.views.View(f.ctx, "Gone", nil, f.bob)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, view.Article.Status)
	assert.Nil(t, view.Version)
	assert.Empty(t, view.HTML)

	view, err = f.views.View(f.ctx, "Gone", nil, f.moderator)
	require.NoError(t, err)
	assert.True(t, view.CanModerate)
	assert.Equal(t, "<p>bye</p>\n", view.HTML)
}

func TestViewRemovedVersion(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Hidden", f.alice, "v0")
	f.edit(t, "Hidden", f.alice, "v1")
	require.NoError(t, f.revisions.SetRemoved(f.ctx, f.article(t, "Hidden"), 0, true, f.moderator))

	zero := 0
	_, err := f.views.View(f.ctx, "Hidden", &zero, f.bob)
	assert.True(t, models.IsNotFound(err))

	view, err := f.views.View(f.ctx, "Hidden", &zero, f.moderator)
	require.NoError(t, err)
	assert.True(t, view.Version.Removed)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)

	html, err := f.views.Preview(markup.TypeMarkdown, "**bold** [[Home]]")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, `<a href="/wiki/Home">Home</a>`)

	html, err = f.views.Preview("", "<b>")
	require.NoError(t, err)
	assert.Equal(t, "<p>&lt;b&gt;</p>\n", html)

	_, err = f.views.Preview(markup.TypeHTML, "x")
	var invalid models.ErrorValidation
	assert.ErrorAs(t, err, &invalid)
}
