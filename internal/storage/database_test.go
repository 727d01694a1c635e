package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namnn9x/remi/internal/book"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "remi-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(t *testing.T, db *DB) *User {
	t.Helper()
	u := &User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		Name:         "Owner",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.SaveUser(u))
	return u
}

func TestUserRoundTrip(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db)

	got, err := db.GetUserByEmail(u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Name, got.Name)

	_, err = db.GetUser("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Duplicate email hits the unique index.
	dup := &User{ID: uuid.NewString(), Email: u.Email, Name: "Dup", PasswordHash: "y", CreatedAt: time.Now().UTC()}
	assert.Error(t, db.SaveUser(dup))
}

// Round-trip must preserve page ids, order, photo-id lists, layouts and
// notes; one page of each photo count 0 through 4 is covered.
func TestBookRoundTrip(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db)

	b := &book.Book{
		ID:           uuid.NewString(),
		OwnerID:      owner.ID,
		Name:         "Our Year",
		Type:         "class",
		ShareID:      "sh-abc",
		ContributeID: "co-def",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		UpdatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	layouts := []book.Layout{
		book.LayoutSingle, book.LayoutSingle, book.LayoutTwoVertical,
		book.LayoutThreeRight, book.LayoutFourGrid,
	}
	photoSeq := 0
	for count := 0; count <= 4; count++ {
		page := book.Page{
			ID:       fmt.Sprintf("page-%d", count),
			PhotoIDs: []string{},
			Layout:   layouts[count],
			Note:     fmt.Sprintf("note for %d photos", count),
		}
		for i := 0; i < count; i++ {
			photoSeq++
			page.PhotoIDs = append(page.PhotoIDs, fmt.Sprintf("ph-%d", photoSeq))
		}
		b.Pages = append(b.Pages, page)
	}
	require.NoError(t, db.SaveBook(b))
	for i := 1; i <= photoSeq; i++ {
		id := fmt.Sprintf("ph-%d", i)
		require.NoError(t, db.SavePhoto(b.ID, &book.Photo{
			ID: id, Filename: id + ".jpg", URL: "/images/" + id + ".jpg",
			UploadedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := db.GetBook(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Name, got.Name)
	assert.Equal(t, b.ShareID, got.ShareID)
	assert.Equal(t, b.ContributeID, got.ContributeID)
	require.Len(t, got.Pages, 5)
	for i, page := range got.Pages {
		assert.Equal(t, b.Pages[i].ID, page.ID)
		assert.Equal(t, b.Pages[i].PhotoIDs, page.PhotoIDs)
		assert.Equal(t, b.Pages[i].Layout, page.Layout)
		assert.Equal(t, b.Pages[i].Note, page.Note)
	}
	require.Len(t, got.Photos, photoSeq)
	assert.Equal(t, "ph-1", got.Photos[0].ID)
}

func TestBookLookupByPublicIDs(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db)
	b := &book.Book{
		ID: uuid.NewString(), OwnerID: owner.ID, Name: "B", Type: "group",
		ShareID: "share-1", ContributeID: "contrib-1",
		Pages:     []book.Page{},
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveBook(b))

	byShare, err := db.GetBookByShareID("share-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byShare.ID)

	byContribute, err := db.GetBookByContributeID("contrib-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byContribute.ID)

	_, err = db.GetBookByShareID("contrib-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveBookReplacesWholeRecord(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db)
	b := &book.Book{
		ID: uuid.NewString(), OwnerID: owner.ID, Name: "Before", Type: "group",
		ShareID: "s1", ContributeID: "c1",
		Pages:     []book.Page{{ID: "p1", PhotoIDs: []string{}, Layout: book.LayoutSingle}},
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveBook(b))

	b.Name = "After"
	b.Pages = append(b.Pages, book.Page{ID: "p2", PhotoIDs: []string{}, Layout: book.LayoutSingle, Note: "second"})
	require.NoError(t, db.SaveBook(b))

	got, err := db.GetBook(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	require.Len(t, got.Pages, 2)
	assert.Equal(t, "second", got.Pages[1].Note)
}

func TestListBooksByOwnerPagination(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.SaveBook(&book.Book{
			ID: uuid.NewString(), OwnerID: owner.ID,
			Name: fmt.Sprintf("book %d", i), Type: "group",
			ShareID: fmt.Sprintf("s%d", i), ContributeID: fmt.Sprintf("c%d", i),
			Pages:     []book.Page{},
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
			UpdatedAt: time.Now().UTC(),
		}))
	}

	books, total, err := db.ListBooksByOwner(owner.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, books, 2)
	assert.Equal(t, "book 4", books[0].Name) // newest first

	books, total, err = db.ListBooksByOwner(owner.ID, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, books, 1)
}

func TestContributions(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db)
	contributor := testUser(t, db)
	b := &book.Book{
		ID: uuid.NewString(), OwnerID: owner.ID, Name: "B", Type: "group",
		ShareID: "s1", ContributeID: "c1", Pages: []book.Page{},
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveBook(b))

	for i := 0; i < 3; i++ {
		photoID := fmt.Sprintf("ph-%d", i)
		require.NoError(t, db.SavePhoto(b.ID, &book.Photo{
			ID: photoID, Filename: photoID + ".jpg", URL: "/images/" + photoID + ".jpg",
			UploadedAt: time.Now().UTC(),
		}))
		contributorID := ""
		if i == 0 {
			contributorID = contributor.ID
		}
		require.NoError(t, db.SaveContribution(&book.Contribution{
			ID: uuid.NewString(), BookID: b.ID, PhotoID: photoID,
			Note: fmt.Sprintf("note %d", i), Prompt: "This moment happened when...",
			ContributedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}, contributorID))
	}

	contributions, total, err := db.ListContributions(b.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, contributions, 3)
	assert.Equal(t, "/images/ph-2.jpg", contributions[0].URL) // newest first

	contributed, total, err := db.ListContributedBooks(contributor.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, contributed, 1)
	assert.Equal(t, b.ID, contributed[0].ID)
}

func TestDeleteBookCascades(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db)
	b := &book.Book{
		ID: uuid.NewString(), OwnerID: owner.ID, Name: "B", Type: "group",
		ShareID: "s1", ContributeID: "c1", Pages: []book.Page{},
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveBook(b))
	require.NoError(t, db.SavePhoto(b.ID, &book.Photo{ID: "ph", Filename: "ph.jpg", URL: "/images/ph.jpg", UploadedAt: time.Now().UTC()}))

	require.NoError(t, db.DeleteBook(b.ID))

	_, err := db.GetBook(b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = db.GetPhoto("ph")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db, err := InitDB(path)
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version=%d", schemaVersion+1))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = InitDB(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}
