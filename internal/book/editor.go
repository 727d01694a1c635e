package book

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrPageFull      = errors.New("page already holds 4 photos")
	ErrPageNotFound  = errors.New("page not found")
	ErrPhotoNotFound = errors.New("photo not found")
	ErrPhotoOnPage   = errors.New("photo already on page")
	ErrNoteTooLong   = errors.New("note exceeds maximum length")
)

// Editor mutates a book's pages and photo pool while keeping the
// photo-count/layout invariant: after every operation each page holds at
// most four photos and its layout is valid for its photo count. Every
// successful mutation fires the change hook with the updated book, so
// callers never persist separately.
//
// The editor is not safe for concurrent use; mutations are expected to
// arrive from a single event loop, matching how the UI drives it.
type Editor struct {
	book     *Book
	onChange func(*Book)
}

// NewEditor wraps an existing book. The book is mutated in place.
func NewEditor(b *Book) *Editor {
	return &Editor{book: b}
}

// OnChange registers the hook fired after every successful mutation.
func (e *Editor) OnChange(fn func(*Book)) {
	e.onChange = fn
}

// Book returns the wrapped book.
func (e *Editor) Book() *Book {
	return e.book
}

func (e *Editor) changed() {
	if e.onChange != nil {
		e.onChange(e.book)
	}
}

// AddPage appends an empty page with the default layout and returns its id.
func (e *Editor) AddPage() string {
	page := Page{
		ID:       uuid.NewString(),
		PhotoIDs: []string{},
		Layout:   DefaultLayout(0),
		Note:     "",
	}
	e.book.Pages = append(e.book.Pages, page)
	e.changed()
	return page.ID
}

// RemovePage removes the page. Re-selecting a current page is the caller's
// concern (first remaining page, or none).
func (e *Editor) RemovePage(pageID string) error {
	for i := range e.book.Pages {
		if e.book.Pages[i].ID == pageID {
			e.book.Pages = append(e.book.Pages[:i], e.book.Pages[i+1:]...)
			e.changed()
			return nil
		}
	}
	return fmt.Errorf("remove page %s: %w", pageID, ErrPageNotFound)
}

// AddPhotoToPage appends a pool photo reference to the page. The existing
// layout is kept when it is still valid for the new count, otherwise the
// default variant for the new count is substituted.
func (e *Editor) AddPhotoToPage(pageID, photoID string) error {
	page := e.book.Page(pageID)
	if page == nil {
		return fmt.Errorf("add photo to page %s: %w", pageID, ErrPageNotFound)
	}
	if e.book.Photo(photoID) == nil {
		return fmt.Errorf("add photo %s: %w", photoID, ErrPhotoNotFound)
	}
	if len(page.PhotoIDs) >= MaxPhotosPerPage {
		return fmt.Errorf("add photo to page %s: %w", pageID, ErrPageFull)
	}
	for _, id := range page.PhotoIDs {
		if id == photoID {
			return fmt.Errorf("add photo %s: %w", photoID, ErrPhotoOnPage)
		}
	}
	page.PhotoIDs = append(page.PhotoIDs, photoID)
	if !ValidLayout(len(page.PhotoIDs), page.Layout) {
		page.Layout = DefaultLayout(len(page.PhotoIDs))
	}
	e.changed()
	return nil
}

// RemovePhotoFromPage drops the reference and resets the layout to the
// default for the smaller count. Variant preservation is not attempted:
// most variants have no stable analog at a different count.
func (e *Editor) RemovePhotoFromPage(pageID, photoID string) error {
	page := e.book.Page(pageID)
	if page == nil {
		return fmt.Errorf("remove photo from page %s: %w", pageID, ErrPageNotFound)
	}
	for i, id := range page.PhotoIDs {
		if id == photoID {
			page.PhotoIDs = append(page.PhotoIDs[:i], page.PhotoIDs[i+1:]...)
			page.Layout = DefaultLayout(len(page.PhotoIDs))
			e.changed()
			return nil
		}
	}
	return fmt.Errorf("remove photo %s: %w", photoID, ErrPhotoNotFound)
}

// SetLayout replaces the page's variant. Variants outside the valid set for
// the page's current photo count are rejected and the page is unchanged.
func (e *Editor) SetLayout(pageID string, layout Layout) error {
	page := e.book.Page(pageID)
	if page == nil {
		return fmt.Errorf("set layout on page %s: %w", pageID, ErrPageNotFound)
	}
	if !ValidLayout(len(page.PhotoIDs), layout) {
		return fmt.Errorf("set layout on page %s: layout %q is not valid for %d photos", pageID, layout, len(page.PhotoIDs))
	}
	page.Layout = layout
	e.changed()
	return nil
}

// SetPageNote replaces the page note. Notes beyond the limit are rejected,
// not truncated.
func (e *Editor) SetPageNote(pageID, text string) error {
	page := e.book.Page(pageID)
	if page == nil {
		return fmt.Errorf("set note on page %s: %w", pageID, ErrPageNotFound)
	}
	if len([]rune(text)) > MaxPageNoteLen {
		return fmt.Errorf("set note on page %s: %w", pageID, ErrNoteTooLong)
	}
	page.Note = text
	e.changed()
	return nil
}

// RegisterUploaded adds a photo to the pool once the upload backend has
// assigned it a stable id and URL. Re-registering an id replaces the entry.
func (e *Editor) RegisterUploaded(p Photo) error {
	if len([]rune(p.Note)) > MaxPhotoNoteLen {
		return fmt.Errorf("register photo %s: %w", p.ID, ErrNoteTooLong)
	}
	if existing := e.book.Photo(p.ID); existing != nil {
		*existing = p
	} else {
		e.book.Photos = append(e.book.Photos, p)
	}
	e.changed()
	return nil
}

// RemovePhoto deletes a photo from the pool and drops its reference from
// every page, re-deriving each affected page's layout. No dangling ids
// survive a pool-level removal.
func (e *Editor) RemovePhoto(photoID string) error {
	found := false
	for i := range e.book.Photos {
		if e.book.Photos[i].ID == photoID {
			e.book.Photos = append(e.book.Photos[:i], e.book.Photos[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("remove photo %s: %w", photoID, ErrPhotoNotFound)
	}
	for i := range e.book.Pages {
		page := &e.book.Pages[i]
		for j, id := range page.PhotoIDs {
			if id == photoID {
				page.PhotoIDs = append(page.PhotoIDs[:j], page.PhotoIDs[j+1:]...)
				page.Layout = DefaultLayout(len(page.PhotoIDs))
				break
			}
		}
	}
	e.changed()
	return nil
}

// ListUnplaced returns pool photos not referenced by any page, in pool
// order. Used to populate "available photos" pickers.
func (e *Editor) ListUnplaced() []Photo {
	placed := make(map[string]bool)
	for _, page := range e.book.Pages {
		for _, id := range page.PhotoIDs {
			placed[id] = true
		}
	}
	var unplaced []Photo
	for _, p := range e.book.Photos {
		if !placed[p.ID] {
			unplaced = append(unplaced, p)
		}
	}
	return unplaced
}

// ResolveByIDs returns the pool photos matching ids, preserving input
// order. Ids with no pool match are silently dropped, which guards page
// hydration against stale references.
func (e *Editor) ResolveByIDs(ids []string) []Photo {
	var photos []Photo
	for _, id := range ids {
		if p := e.book.Photo(id); p != nil {
			photos = append(photos, *p)
		}
	}
	return photos
}
