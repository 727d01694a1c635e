package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/namnn9x/remi/internal/book"
	"github.com/namnn9x/remi/internal/live"
	"github.com/namnn9x/remi/internal/storage"
)

const (
	maxUploadSize = 10 << 20
	thumbnailSize = 300
)

var allowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func randomPrompt() string {
	return prompts[rand.Intn(len(prompts))]
}

// handleUpload stores a multipart image and, when a memoryBookId is
// provided, registers it in that book's photo pool.
func (app *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
		return
	}
	userID := app.requireUser(w, r)
	if userID == "" {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "file too large or malformed form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageTypes[ext] {
		writeError(w, http.StatusBadRequest, CodeValidation, "unsupported image type")
		return
	}

	var b *book.Book
	if bookID := r.FormValue("memoryBookId"); bookID != "" {
		b, err = app.db.GetBook(bookID)
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
	}

	filename := uuid.NewString() + ext
	photo, size, err := app.storeUpload(file, filename)
	if err != nil {
		app.log.Error().Err(err).Str("filename", filename).Msg("upload failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to store file")
		return
	}

	if b != nil {
		if err := app.db.SavePhoto(b.ID, photo); err != nil {
			app.log.Error().Err(err).Msg("failed to register pool photo")
			writeError(w, http.StatusInternalServerError, CodeInternal, "failed to register photo")
			return
		}
		app.hub.Publish(live.EventBookUpdated, b.ID, map[string]string{"photoId": photo.ID})
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		ID:           photo.ID,
		Filename:     photo.Filename,
		URL:          photo.URL,
		OriginalName: header.Filename,
		Size:         size,
		MimeType:     header.Header.Get("Content-Type"),
		UploadedAt:   photo.UploadedAt,
	})
}

// storeUpload writes the file under the upload dir and returns the pool
// photo record for it.
func (app *App) storeUpload(src io.Reader, filename string) (*book.Photo, int64, error) {
	if err := os.MkdirAll(app.uploadDir, 0o755); err != nil {
		return nil, 0, err
	}
	dst, err := os.Create(filepath.Join(app.uploadDir, filename))
	if err != nil {
		return nil, 0, err
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(dst.Name())
		return nil, 0, err
	}

	return &book.Photo{
		ID:         uuid.NewString(),
		Filename:   filename,
		URL:        "/api/images/" + filename,
		Prompt:     randomPrompt(),
		UploadedAt: time.Now().UTC(),
	}, size, nil
}

func (app *App) handleImage(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/api/images/")
	if filename == "" || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid filename")
		return
	}

	switch r.Method {
	case http.MethodGet:
		path := filepath.Join(app.uploadDir, filename)
		if _, err := os.Stat(path); err != nil {
			writeError(w, http.StatusNotFound, CodeNotFound, "image not found")
			return
		}
		http.ServeFile(w, r, path)
	case http.MethodDelete:
		app.handleDeleteImage(w, r, filename)
	default:
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
	}
}

// handleDeleteImage removes the file, the pool record and every page
// reference to the photo in one pass.
func (app *App) handleDeleteImage(w http.ResponseWriter, r *http.Request, filename string) {
	userID := app.requireUser(w, r)
	if userID == "" {
		return
	}

	photo, bookID, err := app.db.GetPhotoByFilename(filename)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "photo not found")
		return
	}
	if err != nil {
		app.log.Error().Err(err).Msg("photo lookup failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load photo")
		return
	}

	b, err := app.db.GetBook(bookID)
	if err != nil {
		app.log.Error().Err(err).Msg("book lookup failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load memory book")
		return
	}
	if b.OwnerID != userID {
		writeError(w, http.StatusForbidden, CodeForbidden, "not the owner of this photo")
		return
	}

	editor := book.NewEditor(b)
	if err := editor.RemovePhoto(photo.ID); err != nil && !errors.Is(err, book.ErrPhotoNotFound) {
		app.log.Error().Err(err).Msg("failed to prune page references")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to delete photo")
		return
	}
	b.UpdatedAt = time.Now().UTC()
	if err := app.db.SaveBook(b); err != nil {
		app.log.Error().Err(err).Msg("failed to persist pruned pages")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to delete photo")
		return
	}
	if err := app.db.DeletePhoto(photo.ID); err != nil {
		app.log.Error().Err(err).Msg("failed to delete pool record")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to delete photo")
		return
	}
	os.Remove(filepath.Join(app.uploadDir, filename))

	app.thumbnailCache.mu.Lock()
	delete(app.thumbnailCache.cache, filename)
	app.thumbnailCache.mu.Unlock()

	app.hub.Publish(live.EventBookUpdated, b.ID, map[string]string{"deletedPhotoId": photo.ID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "photo deleted"})
}

func (app *App) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
		return
	}
	filename := strings.TrimPrefix(r.URL.Path, "/api/thumbnails/")
	if filename == "" || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid filename")
		return
	}

	app.thumbnailCache.mu.RLock()
	cached, ok := app.thumbnailCache.cache[filename]
	app.thumbnailCache.mu.RUnlock()
	if ok {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write(cached)
		return
	}

	data, err := app.generateThumbnail(filename)
	if err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "thumbnail unavailable")
		return
	}

	app.thumbnailCache.mu.Lock()
	app.thumbnailCache.cache[filename] = data
	app.thumbnailCache.mu.Unlock()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

func (app *App) generateThumbnail(filename string) ([]byte, error) {
	f, err := os.Open(filepath.Join(app.uploadDir, filename))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	case ".gif":
		img, err = gif.Decode(f)
	default:
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}

	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
