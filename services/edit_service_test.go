package services

import (
	"fmt"
	"sync"
	"testing"

	"wiki-engine/config"
	"wiki-engine/markup"
	"wiki-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditDemoScenario(t *testing.T) {
	f := newFixture(t)

	session, err := f.edits.BeginEdit(f.ctx, "demo", f.alice)
	require.NoError(t, err)
	assert.Nil(t, session.Article)
	assert.Equal(t, "demo", session.Title)
	assert.Equal(t, markup.TypePlain, session.MarkupType)
	assert.Empty(t, session.Body)

	v0, err := f.edits.CommitEdit(f.ctx, "demo", f.alice, models.EditRequest{Body: "hello", Comment: "first"})
	require.NoError(t, err)
	assert.Equal(t, 0, v0.Number)

	session, err = f.edits.BeginEdit(f.ctx, "demo", f.bob)
	require.NoError(t, err)
	require.NotNil(t, session.Article)
	require.NotNil(t, session.BaseNumber)
	assert.Equal(t, 0, *session.BaseNumber)
	assert.Equal(t, "hello", session.Body)
	assert.Equal(t, int(f.cfg.WriteLockTTL.Seconds()), session.LeaseTTL)

	v1, err := f.edits.CommitEdit(f.ctx, "demo", f.bob, models.EditRequest{Body: "hello world", MarkupType: markup.TypeMarkdown})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Number)
	assert.Equal(t, markup.TypeMarkdown, v1.Body.MarkupType)

	article := f.article(t, "demo")
	first, err := f.revisions.Get(f.ctx, article, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", first.Body.Raw)
	assert.Equal(t, "first", first.Comment)
	assert.Equal(t, f.alice.UserID, *first.AuthorID)

	// The lease was released after the commit.
	_, held, err := f.leases.Inspect(f.ctx, ArticleLeaseKey(article.ID))
	require.NoError(t, err)
	assert.False(t, held)
}

func TestBeginEditContention(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Busy", f.alice, "v0")

	_, err := f.edits.BeginEdit(f.ctx, "Busy", f.alice)
	require.NoError(t, err)

	_, err = f.edits.BeginEdit(f.ctx, "Busy", f.bob)
	var contention models.ErrorLockContention
	require.ErrorAs(t, err, &contention)
	assert.Equal(t, f.alice.LeaseHolder(), contention.Holder)
	assert.False(t, contention.ExpiresAt.IsZero())

	count, err := f.revisions.Count(f.ctx, f.article(t, "Busy"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// Re-entering edit mode as the holder is fine.
	_, err = f.edits.BeginEdit(f.ctx, "Busy", f.alice)
	assert.NoError(t, err)
}

func TestCommitAfterLosingLease(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Lost", f.alice, "v0")

	_, err := f.edits.BeginEdit(f.ctx, "Lost", f.alice)
	require.NoError(t, err)

	released, err := f.edits.BreakLease(f.ctx, "Lost", f.moderator)
	require.NoError(t, err)
	assert.True(t, released)

	_, err = f.edits.BeginEdit(f.ctx, "Lost", f.bob)
	require.NoError(t, err)

	_, err = f.edits.CommitEdit(f.ctx, "Lost", f.alice, models.EditRequest{Body: "too late"})
	var lost models.ErrorLockLost
	assert.ErrorAs(t, err, &lost)

	latest, err := f.revisions.Latest(f.ctx, f.article(t, "Lost"))
	require.NoError(t, err)
	assert.Equal(t, 0, latest.Number)

	_, err = f.edits.CommitEdit(f.ctx, "Lost", f.bob, models.EditRequest{Body: "bob wins"})
	require.NoError(t, err)
}

func TestCommitValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.edits.CommitEdit(f.ctx, "Fresh", f.alice, models.EditRequest{Body: ""})
	var invalid models.ErrorValidation
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "body", invalid.Field)

	_, err = f.edits.CommitEdit(f.ctx, "Fresh", f.alice, models.EditRequest{Body: "x", MarkupType: markup.TypeHTML})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "markup_type", invalid.Field)

	_, err = f.edits.CommitEdit(f.ctx, "Bad|title", f.alice, models.EditRequest{Body: "x"})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "title", invalid.Field)

	_, err = f.articles.Resolve(f.ctx, "Fresh")
	assert.True(t, models.IsNotFound(err))
}

func TestEditPermissions(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Guarded", f.alice, "v0")
	article := f.article(t, "Guarded")
	require.NoError(t, f.articles.SetStatus(f.ctx, article, models.StatusLocked, f.moderator))

	var unauthorized models.ErrorUnauthorized
	_, err := f.edits.BeginEdit(f.ctx, "Guarded", models.Anonymous())
	assert.ErrorAs(t, err, &unauthorized)
	_, err = f.edits.CommitEdit(f.ctx, "Guarded", models.Anonymous(), models.EditRequest{Body: "x"})
	assert.ErrorAs(t, err, &unauthorized)

	var denied models.ErrorPermissionDenied
	_, err = f.edits.BeginEdit(f.ctx, "Guarded", f.alice)
	assert.ErrorAs(t, err, &denied)
	_, err = f.edits.CommitEdit(f.ctx, "Guarded", f.alice, models.EditRequest{Body: "x"})
	assert.ErrorAs(t, err, &denied)

	f.edit(t, "Guarded", f.moderator, "moderated")
}

func TestEditorRolesRestrictEditing(t *testing.T) {
	f := newFixtureWithConfig(t, func(cfg *config.WikiConfig) {
		cfg.EditorRoles = []string{string(models.RoleAdmin)}
	})

	_, err := f.edits.BeginEdit(f.ctx, "Closed", f.alice)
	var denied models.ErrorPermissionDenied
	assert.ErrorAs(t, err, &denied)

	// Moderators keep editor capability.
	f.edit(t, "Closed", f.moderator, "v0")
}

func TestRevert(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Rev", f.alice, "good")
	f.edit(t, "Rev", f.bob, "vandalism")

	_, err := f.edits.Revert(f.ctx, "Rev", 0, f.alice)
	var denied models.ErrorPermissionDenied
	assert.ErrorAs(t, err, &denied)

	version, err := f.edits.Revert(f.ctx, "Rev", 0, f.moderator)
	require.NoError(t, err)
	assert.Equal(t, 2, version.Number)
	assert.Equal(t, "good", version.Body.Raw)
	assert.Equal(t, "reverted to r0", version.Comment)

	_, err = f.edits.Revert(f.ctx, "Rev", 9, f.moderator)
	assert.True(t, models.IsNotFound(err))

	_, err = f.edits.BeginEdit(f.ctx, "Rev", f.alice)
	require.NoError(t, err)
	_, err = f.edits.Revert(f.ctx, "Rev", 1, f.moderator)
	var contention models.ErrorLockContention
	assert.ErrorAs(t, err, &contention)
}

func TestBreakLeaseNeedsModerator(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Held", f.alice, "v0")

	_, err := f.edits.BreakLease(f.ctx, "Held", f.bob)
	var denied models.ErrorPermissionDenied
	assert.ErrorAs(t, err, &denied)

	_, err = f.edits.BreakLease(f.ctx, "Missing", f.moderator)
	assert.True(t, models.IsNotFound(err))
}

func TestConcurrentCommitsStayGapless(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Race", f.alice, "v0")

	editors := make([]models.Identity, 6)
	for i := range editors {
		editors[i] = f.createUser(t, fmt.Sprintf("editor%d", i), models.RoleWriter)
	}

	var wg sync.WaitGroup
	for i, editor := range editors {
		wg.Add(1)
		go func(i int, editor models.Identity) {
			defer wg.Done()
			_, err := f.edits.CommitEdit(f.ctx, "Race", editor, models.EditRequest{Body: fmt.Sprintf("edit %d", i)})
			if err != nil {
				var lost models.ErrorLockLost
				assert.ErrorAs(t, err, &lost)
			}
		}(i, editor)
	}
	wg.Wait()

	history, err := f.revisions.History(f.ctx, f.article(t, "Race"))
	require.NoError(t, err)
	for i, version := range history {
		assert.Equal(t, i, version.Number)
	}
}

func TestAnonymousEditorsHoldSeparateLeases(t *testing.T) {
	f := newFixtureWithConfig(t, func(cfg *config.WikiConfig) { cfg.AnonymousEdits = true })
	f.edit(t, "Open", f.alice, "v0")

	first := models.Identity{Session: "first"}
	second := models.Identity{Session: "second"}

	_, err := f.edits.BeginEdit(f.ctx, "Open", first)
	require.NoError(t, err)

	_, err = f.edits.BeginEdit(f.ctx, "Open", second)
	var contention models.ErrorLockContention
	require.ErrorAs(t, err, &contention)
	assert.Equal(t, "anonymous:first", contention.Holder)

	_, err = f.edits.CommitEdit(f.ctx, "Open", second, models.EditRequest{Body: "second"})
	var lost models.ErrorLockLost
	assert.ErrorAs(t, err, &lost)

	version, err := f.edits.CommitEdit(f.ctx, "Open", first, models.EditRequest{Body: "first"})
	require.NoError(t, err)
	assert.Equal(t, 1, version.Number)
	assert.Nil(t, version.AuthorID)
}

func TestEditThroughRedirectStub(t *testing.T) {
	f := newFixture(t)
	f.edit(t, "Old", f.alice, "v0")
	article := f.article(t, "Old")
	_, err := f.articles.Rename(f.ctx, article, "New", f.moderator)
	require.NoError(t, err)

	session, err := f.edits.BeginEdit(f.ctx, "Old", f.bob)
	require.NoError(t, err)
	assert.Equal(t, "New", session.Title)
	require.NotNil(t, session.Article)
	assert.Equal(t, article.ID, session.Article.ID)
	assert.Equal(t, "v0", session.Body)

	version, err := f.edits.CommitEdit(f.ctx, "Old", f.bob, models.EditRequest{Body: "v1"})
	require.NoError(t, err)
	assert.Equal(t, article.ID, version.ArticleID)
	assert.Equal(t, 1, version.Number)

	stub := f.article(t, "Old")
	stubVersions, err := f.revisions.Count(f.ctx, stub)
	require.NoError(t, err)
	assert.Zero(t, stubVersions)

	view, err := f.views.View(f.ctx, "New", nil, models.Anonymous())
	require.NoError(t, err)
	assert.Equal(t, "v1", view.Version.Body.Raw)
}
