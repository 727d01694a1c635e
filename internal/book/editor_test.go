package book

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	return NewEditor(&Book{ID: "book-1", Name: "Class of 2026", Type: "class"})
}

func poolWith(t *testing.T, e *Editor, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, e.RegisterUploaded(Photo{ID: id, URL: "/images/" + id + ".jpg"}))
	}
}

// requireInvariants checks the two properties that must hold after every
// mutation: the photo cap and layout validity for the current count.
func requireInvariants(t *testing.T, b *Book) {
	t.Helper()
	for _, page := range b.Pages {
		require.LessOrEqual(t, len(page.PhotoIDs), MaxPhotosPerPage)
		if len(page.PhotoIDs) > 0 {
			require.True(t, ValidLayout(len(page.PhotoIDs), page.Layout),
				"page %s: layout %s invalid for %d photos", page.ID, page.Layout, len(page.PhotoIDs))
		}
	}
}

func TestAddPageDefaults(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddPage()

	require.Len(t, e.Book().Pages, 1)
	page := e.Book().Page(id)
	require.NotNil(t, page)
	assert.Empty(t, page.PhotoIDs)
	assert.Equal(t, LayoutSingle, page.Layout)
	assert.Equal(t, "", page.Note)
}

func TestRemovePage(t *testing.T) {
	e := newTestEditor(t)
	first := e.AddPage()
	second := e.AddPage()

	require.NoError(t, e.RemovePage(first))
	require.Len(t, e.Book().Pages, 1)
	assert.Equal(t, second, e.Book().Pages[0].ID)

	err := e.RemovePage("nope")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestAddPhotoKeepsValidLayout(t *testing.T) {
	e := newTestEditor(t)
	poolWith(t, e, "a", "b", "c")
	pageID := e.AddPage()

	require.NoError(t, e.AddPhotoToPage(pageID, "a"))
	assert.Equal(t, LayoutSingle, e.Book().Page(pageID).Layout)

	// single is invalid for 2, so the default for 2 is substituted.
	require.NoError(t, e.AddPhotoToPage(pageID, "b"))
	assert.Equal(t, LayoutTwoHorizontal, e.Book().Page(pageID).Layout)

	// A user-chosen two-photo variant survives... until the count changes.
	require.NoError(t, e.SetLayout(pageID, LayoutTwoVertical))
	require.NoError(t, e.AddPhotoToPage(pageID, "c"))
	assert.Equal(t, LayoutThreeLeft, e.Book().Page(pageID).Layout)
	requireInvariants(t, e.Book())
}

func TestAddPhotoCapacity(t *testing.T) {
	e := newTestEditor(t)
	poolWith(t, e, "a", "b", "c", "d", "e")
	pageID := e.AddPage()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.AddPhotoToPage(pageID, id))
	}

	err := e.AddPhotoToPage(pageID, "e")
	assert.ErrorIs(t, err, ErrPageFull)
	assert.Len(t, e.Book().Page(pageID).PhotoIDs, 4)
	requireInvariants(t, e.Book())
}

func TestAddPhotoRejectsDuplicateAndUnknown(t *testing.T) {
	e := newTestEditor(t)
	poolWith(t, e, "a")
	pageID := e.AddPage()
	require.NoError(t, e.AddPhotoToPage(pageID, "a"))

	assert.ErrorIs(t, e.AddPhotoToPage(pageID, "a"), ErrPhotoOnPage)
	assert.ErrorIs(t, e.AddPhotoToPage(pageID, "ghost"), ErrPhotoNotFound)
	assert.Len(t, e.Book().Page(pageID).PhotoIDs, 1)
}

func TestRemovePhotoFromPageResetsLayout(t *testing.T) {
	e := newTestEditor(t)
	poolWith(t, e, "a", "b", "c")
	pageID := e.AddPage()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, e.AddPhotoToPage(pageID, id))
	}
	require.NoError(t, e.SetLayout(pageID, LayoutThreeLeft))

	require.NoError(t, e.RemovePhotoFromPage(pageID, "b"))
	page := e.Book().Page(pageID)
	assert.Equal(t, []string{"a", "c"}, page.PhotoIDs)
	assert.Equal(t, LayoutTwoHorizontal, page.Layout)
	requireInvariants(t, e.Book())
}

func TestSetLayoutRejectsInvalidVariant(t *testing.T) {
	e := newTestEditor(t)
	poolWith(t, e, "a", "b")
	pageID := e.AddPage()
	require.NoError(t, e.AddPhotoToPage(pageID, "a"))
	require.NoError(t, e.AddPhotoToPage(pageID, "b"))

	err := e.SetLayout(pageID, LayoutFourGrid)
	require.Error(t, err)
	assert.Equal(t, LayoutTwoHorizontal, e.Book().Page(pageID).Layout)
	assert.Equal(t, []string{"a", "b"}, e.Book().Page(pageID).PhotoIDs)
}

func TestSetLayoutOnEmptyPageFails(t *testing.T) {
	e := newTestEditor(t)
	pageID := e.AddPage()
	assert.Error(t, e.SetLayout(pageID, LayoutSingle))
}

func TestSetPageNoteRejectsOverLimit(t *testing.T) {
	e := newTestEditor(t)
	pageID := e.AddPage()

	require.NoError(t, e.SetPageNote(pageID, strings.Repeat("x", MaxPageNoteLen)))
	err := e.SetPageNote(pageID, strings.Repeat("x", MaxPageNoteLen+1))
	assert.ErrorIs(t, err, ErrNoteTooLong)
	assert.Len(t, e.Book().Page(pageID).Note, MaxPageNoteLen)
}

func TestRemovePhotoCascadesToAllPages(t *testing.T) {
	e := newTestEditor(t)
	poolWith(t, e, "a", "b", "c")
	first := e.AddPage()
	second := e.AddPage()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, e.AddPhotoToPage(first, id))
	}
	require.NoError(t, e.AddPhotoToPage(second, "b"))

	require.NoError(t, e.RemovePhoto("b"))

	assert.Nil(t, e.Book().Photo("b"))
	assert.Equal(t, []string{"a", "c"}, e.Book().Page(first).PhotoIDs)
	assert.Equal(t, LayoutTwoHorizontal, e.Book().Page(first).Layout)
	assert.Empty(t, e.Book().Page(second).PhotoIDs)
	requireInvariants(t, e.Book())
}

func TestListUnplaced(t *testing.T) {
	e := newTestEditor(t)
	poolWith(t, e, "a", "b", "c")
	pageID := e.AddPage()
	require.NoError(t, e.AddPhotoToPage(pageID, "b"))

	unplaced := e.ListUnplaced()
	require.Len(t, unplaced, 2)
	assert.Equal(t, "a", unplaced[0].ID)
	assert.Equal(t, "c", unplaced[1].ID)
}

func TestResolveByIDs(t *testing.T) {
	e := newTestEditor(t)
	poolWith(t, e, "a", "b", "c")

	photos := e.ResolveByIDs([]string{"c", "stale", "a"})
	require.Len(t, photos, 2)
	assert.Equal(t, "c", photos[0].ID)
	assert.Equal(t, "a", photos[1].ID)
}

func TestRegisterUploadedReplacesExisting(t *testing.T) {
	e := newTestEditor(t)
	require.NoError(t, e.RegisterUploaded(Photo{ID: "a", Note: "first"}))
	require.NoError(t, e.RegisterUploaded(Photo{ID: "a", Note: "second"}))

	require.Len(t, e.Book().Photos, 1)
	assert.Equal(t, "second", e.Book().Photos[0].Note)

	err := e.RegisterUploaded(Photo{ID: "b", Note: strings.Repeat("y", MaxPhotoNoteLen+1)})
	assert.ErrorIs(t, err, ErrNoteTooLong)
}

func TestEveryMutationFiresChangeHook(t *testing.T) {
	e := newTestEditor(t)
	var fired int
	e.OnChange(func(b *Book) { fired++ })

	poolWith(t, e, "a")
	pageID := e.AddPage()
	require.NoError(t, e.AddPhotoToPage(pageID, "a"))
	require.NoError(t, e.SetPageNote(pageID, "hello"))
	require.NoError(t, e.RemovePhotoFromPage(pageID, "a"))
	require.NoError(t, e.RemovePhoto("a"))
	require.NoError(t, e.RemovePage(pageID))

	// register + add page + add photo + note + remove photo from page +
	// pool remove + remove page
	assert.Equal(t, 7, fired)

	// Failed mutations do not fire the hook.
	fired = 0
	assert.Error(t, e.SetPageNote("nope", "x"))
	assert.Zero(t, fired)
}
