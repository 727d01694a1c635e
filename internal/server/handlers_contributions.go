package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/namnn9x/remi/internal/book"
	"github.com/namnn9x/remi/internal/live"
	"github.com/namnn9x/remi/internal/storage"
)

func (app *App) handleContributions(w http.ResponseWriter, r *http.Request, id string) {
	b, err := app.resolveContributionBook(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "memory book not found")
		return
	}
	if err != nil {
		app.log.Error().Err(err).Msg("book lookup failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load memory book")
		return
	}

	switch r.Method {
	case http.MethodPost:
		app.handleSubmitContributions(w, r, b)
	case http.MethodGet:
		app.handleListContributions(w, r, b)
	default:
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
	}
}

// resolveContributionBook accepts either the public contribute slug or the
// book id, since contributors only ever hold the slug.
func (app *App) resolveContributionBook(id string) (*book.Book, error) {
	b, err := app.db.GetBookByContributeID(id)
	if errors.Is(err, storage.ErrNotFound) {
		return app.db.GetBook(id)
	}
	return b, err
}

// handleSubmitContributions accepts a batch of photos from a contributor.
// No account is required; a valid token, when present, is recorded so the
// book shows up in the contributor's own listing.
func (app *App) handleSubmitContributions(w http.ResponseWriter, r *http.Request, b *book.Book) {
	r.Body = http.MaxBytesReader(w, r.Body, 4*maxUploadSize)
	if err := r.ParseMultipartForm(4 * maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "files too large or malformed form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidation, "at least one file is required")
		return
	}
	notes := r.MultipartForm.Value["notes"]
	promptValues := r.MultipartForm.Value["prompts"]

	for i := range files {
		if i < len(notes) && len([]rune(notes[i])) > book.MaxPhotoNoteLen {
			writeError(w, http.StatusBadRequest, CodeValidation, "a note exceeds the limit")
			return
		}
		ext := strings.ToLower(filepath.Ext(files[i].Filename))
		if !allowedImageTypes[ext] {
			writeError(w, http.StatusBadRequest, CodeValidation, "unsupported image type")
			return
		}
	}

	contributorID := app.currentUserID(r)

	saved := make([]ContributionResponse, 0, len(files))
	for i, header := range files {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidation, "unreadable file in form")
			return
		}

		filename := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
		photo, _, err := app.storeUpload(file, filename)
		file.Close()
		if err != nil {
			app.log.Error().Err(err).Msg("contribution upload failed")
			writeError(w, http.StatusInternalServerError, CodeInternal, "failed to store file")
			return
		}

		if i < len(notes) {
			photo.Note = notes[i]
		}
		if i < len(promptValues) && promptValues[i] != "" {
			photo.Prompt = promptValues[i]
		}
		if err := app.db.SavePhoto(b.ID, photo); err != nil {
			app.log.Error().Err(err).Msg("failed to register contributed photo")
			writeError(w, http.StatusInternalServerError, CodeInternal, "failed to register photo")
			return
		}

		c := book.Contribution{
			ID:            uuid.NewString(),
			BookID:        b.ID,
			PhotoID:       photo.ID,
			URL:           photo.URL,
			Note:          photo.Note,
			Prompt:        photo.Prompt,
			ContributedAt: time.Now().UTC(),
		}
		if err := app.db.SaveContribution(&c, contributorID); err != nil {
			app.log.Error().Err(err).Msg("failed to save contribution")
			writeError(w, http.StatusInternalServerError, CodeInternal, "failed to save contribution")
			return
		}
		saved = append(saved, toContributionResponse(c))
	}

	app.hub.Publish(live.EventContributionReceived, b.ID, map[string]int{"count": len(saved)})
	writeJSON(w, http.StatusCreated, map[string]any{"data": saved})
}

func (app *App) handleListContributions(w http.ResponseWriter, r *http.Request, b *book.Book) {
	userID := app.requireUser(w, r)
	if userID == "" {
		return
	}
	if b.OwnerID != userID {
		writeError(w, http.StatusForbidden, CodeForbidden, "not the owner of this memory book")
		return
	}

	limit, offset := pagination(r, 50)
	contributions, total, err := app.db.ListContributions(b.ID, limit, offset)
	if err != nil {
		app.log.Error().Err(err).Msg("failed to list contributions")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to list contributions")
		return
	}

	resp := Paginated[ContributionResponse]{Data: make([]ContributionResponse, 0, len(contributions)), Total: total, Limit: limit, Offset: offset}
	for _, c := range contributions {
		resp.Data = append(resp.Data, toContributionResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}
