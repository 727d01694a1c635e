package book

import "time"

// Limits enforced by the editor and again server-side.
const (
	MaxPhotosPerPage = 4
	MaxPageNoteLen   = 500
	MaxPhotoNoteLen  = 200
)

// Photo is an uploaded image in a book's pool. Pages reference photos by id
// and never own them.
type Photo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename,omitempty"`
	URL        string    `json:"url"`
	Note       string    `json:"note"`
	Prompt     string    `json:"prompt"`
	UploadedAt time.Time `json:"uploadedAt,omitempty"`
}

// Page holds an ordered list of up to four photo references, a layout and a
// free-text note.
type Page struct {
	ID       string   `json:"id"`
	PhotoIDs []string `json:"photoIds"`
	Layout   Layout   `json:"layout"`
	Note     string   `json:"note"`
}

// Book is the top-level shareable artifact. ShareID grants public read-only
// access, ContributeID grants write-only photo submission; both are distinct
// from the owner-facing ID.
type Book struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	ShareID      string    `json:"shareId"`
	ContributeID string    `json:"contributeId"`
	Pages        []Page    `json:"pages"`
	Photos       []Photo   `json:"photos"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Contribution records a photo submitted by a non-owner through the
// contribute link. It is attached to the book but never merged into pages
// automatically.
type Contribution struct {
	ID            string    `json:"id"`
	BookID        string    `json:"bookId"`
	PhotoID       string    `json:"photoId"`
	URL           string    `json:"url"`
	Note          string    `json:"note"`
	Prompt        string    `json:"prompt"`
	ContributedAt time.Time `json:"contributedAt"`
}

// Page lookup by id; nil when absent.
func (b *Book) Page(pageID string) *Page {
	for i := range b.Pages {
		if b.Pages[i].ID == pageID {
			return &b.Pages[i]
		}
	}
	return nil
}

// Photo lookup in the pool by id; nil when absent.
func (b *Book) Photo(photoID string) *Photo {
	for i := range b.Photos {
		if b.Photos[i].ID == photoID {
			return &b.Photos[i]
		}
	}
	return nil
}
