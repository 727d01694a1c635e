package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/namnn9x/remi/internal/book"
	"github.com/namnn9x/remi/internal/live"
	"github.com/namnn9x/remi/internal/storage"
)

const publicIDLength = 10

func (app *App) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		app.handleCreateBook(w, r)
	case http.MethodGet:
		app.handleListBooks(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
	}
}

// handleBookSubtree dispatches /api/memory-books/... sub-routes.
func (app *App) handleBookSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/memory-books/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "my":
		app.handleMyBooks(w, r)
	case len(parts) == 2 && parts[0] == "share":
		app.handleBookByShareID(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "contribute":
		app.handleBookByContributeID(w, r, parts[1])
	case len(parts) == 1 && parts[0] != "":
		app.handleBookByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "contributions":
		app.handleContributions(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, CodeNotFound, "no such endpoint")
	}
}

func (app *App) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	userID := app.requireUser(w, r)
	if userID == "" {
		return
	}

	var req struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "name is required")
		return
	}

	now := time.Now().UTC()
	b := &book.Book{
		ID:           uuid.NewString(),
		OwnerID:      userID,
		Name:         strings.TrimSpace(req.Name),
		Type:         req.Type,
		ShareID:      generateID(publicIDLength),
		ContributeID: generateID(publicIDLength),
		Pages:        []book.Page{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := app.db.SaveBook(b); err != nil {
		app.log.Error().Err(err).Msg("failed to create book")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to create memory book")
		return
	}

	writeJSON(w, http.StatusCreated, toBookResponse(b))
}

func (app *App) handleListBooks(w http.ResponseWriter, r *http.Request) {
	userID := app.requireUser(w, r)
	if userID == "" {
		return
	}
	limit, offset := pagination(r, 20)

	books, total, err := app.db.ListBooksByOwner(userID, limit, offset)
	if err != nil {
		app.log.Error().Err(err).Msg("failed to list books")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to list memory books")
		return
	}

	resp := Paginated[BookResponse]{Data: make([]BookResponse, 0, len(books)), Total: total, Limit: limit, Offset: offset}
	for _, b := range books {
		resp.Data = append(resp.Data, toBookResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) handleMyBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
		return
	}
	userID := app.requireUser(w, r)
	if userID == "" {
		return
	}
	limit, offset := pagination(r, 20)

	myBooks, myTotal, err := app.db.ListBooksByOwner(userID, limit, offset)
	if err != nil {
		app.log.Error().Err(err).Msg("failed to list owned books")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to list memory books")
		return
	}
	contributed, contributedTotal, err := app.db.ListContributedBooks(userID, limit, offset)
	if err != nil {
		app.log.Error().Err(err).Msg("failed to list contributed books")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to list memory books")
		return
	}

	toResponses := func(books []*book.Book) []BookResponse {
		out := make([]BookResponse, 0, len(books))
		for _, b := range books {
			out = append(out, toBookResponse(b))
		}
		return out
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"myBooks":          toResponses(myBooks),
			"contributedBooks": toResponses(contributed),
		},
		"total": map[string]int{
			"myBooks":          myTotal,
			"contributedBooks": contributedTotal,
		},
		"limit":  limit,
		"offset": offset,
	})
}

func (app *App) handleBookByShareID(w http.ResponseWriter, r *http.Request, shareID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
		return
	}
	b, err := app.db.GetBookByShareID(shareID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "memory book not found")
		return
	}
	if err != nil {
		app.log.Error().Err(err).Msg("share lookup failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load memory book")
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(b))
}

// handleBookByContributeID exposes only the metadata a contributor needs;
// pages and the pool stay private to the owner and share viewers.
func (app *App) handleBookByContributeID(w http.ResponseWriter, r *http.Request, contributeID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
		return
	}
	b, err := app.db.GetBookByContributeID(contributeID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "memory book not found")
		return
	}
	if err != nil {
		app.log.Error().Err(err).Msg("contribute lookup failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load memory book")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":           b.ID,
		"name":         b.Name,
		"type":         b.Type,
		"contributeId": b.ContributeID,
	})
}

func (app *App) handleBookByID(w http.ResponseWriter, r *http.Request, bookID string) {
	userID := app.requireUser(w, r)
	if userID == "" {
		return
	}
	b, err := app.db.GetBook(bookID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "memory book not found")
		return
	}
	if err != nil {
		app.log.Error().Err(err).Msg("book lookup failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load memory book")
		return
	}
	if b.OwnerID != userID {
		writeError(w, http.StatusForbidden, CodeForbidden, "not the owner of this memory book")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toBookResponse(b))
	case http.MethodPut:
		app.handleUpdateBook(w, r, b)
	case http.MethodDelete:
		if err := app.db.DeleteBook(b.ID); err != nil {
			app.log.Error().Err(err).Msg("book delete failed")
			writeError(w, http.StatusInternalServerError, CodeInternal, "failed to delete memory book")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "memory book deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
	}
}

// handleUpdateBook accepts a partial update of name, type and pages. Pages
// replace the stored page list wholesale; there is no field-level patching
// and concurrent editors resolve by last write wins.
func (app *App) handleUpdateBook(w http.ResponseWriter, r *http.Request, b *book.Book) {
	var req struct {
		Name  *string        `json:"name"`
		Type  *string        `json:"type"`
		Pages []PageResponse `json:"pages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, CodeValidation, "name cannot be empty")
			return
		}
		b.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		b.Type = *req.Type
	}
	if req.Pages != nil {
		pages, err := app.pagesFromRequest(b, req.Pages)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
			return
		}
		b.Pages = pages
	}

	b.UpdatedAt = time.Now().UTC()
	if err := app.db.SaveBook(b); err != nil {
		app.log.Error().Err(err).Msg("book update failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to update memory book")
		return
	}

	app.hub.Publish(live.EventBookUpdated, b.ID, map[string]string{"updatedAt": b.UpdatedAt.Format(time.RFC3339)})
	writeJSON(w, http.StatusOK, toBookResponse(b))
}

// pagesFromRequest validates submitted pages against the domain invariants
// and converts them to stored pages. Photo ids with no pool match are
// silently dropped so stale references do not survive a save; when dropping
// invalidates the submitted layout, the default for the remaining count is
// substituted.
func (app *App) pagesFromRequest(b *book.Book, reqPages []PageResponse) ([]book.Page, error) {
	pages := make([]book.Page, 0, len(reqPages))
	for i, rp := range reqPages {
		if len(rp.Photos) > book.MaxPhotosPerPage {
			return nil, fmt.Errorf("page %d: a page holds at most %d photos", i+1, book.MaxPhotosPerPage)
		}
		if len([]rune(rp.Note)) > book.MaxPageNoteLen {
			return nil, fmt.Errorf("page %d: note exceeds %d characters", i+1, book.MaxPageNoteLen)
		}

		layout := book.Layout(rp.Layout)
		if layout == "" || len(rp.Photos) == 0 {
			layout = book.DefaultLayout(len(rp.Photos))
		}
		if len(rp.Photos) > 0 && !book.ValidLayout(len(rp.Photos), layout) {
			return nil, fmt.Errorf("page %d: layout %q is not valid for %d photos", i+1, rp.Layout, len(rp.Photos))
		}

		page := book.Page{ID: rp.ID, PhotoIDs: []string{}, Layout: layout, Note: rp.Note}
		if page.ID == "" {
			page.ID = uuid.NewString()
		}
		for _, photo := range rp.Photos {
			if b.Photo(photo.ID) != nil {
				page.PhotoIDs = append(page.PhotoIDs, photo.ID)
			}
		}
		if len(page.PhotoIDs) != len(rp.Photos) && !book.ValidLayout(len(page.PhotoIDs), page.Layout) {
			page.Layout = book.DefaultLayout(len(page.PhotoIDs))
		}
		pages = append(pages, page)
	}
	return pages, nil
}
