package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/namnn9x/remi/internal/book"
)

// Error codes surfaced in the uniform {"error":{"code","message"}} body.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorEnvelope struct {
	Error apiErrorBody `json:"error"`
}

// PhotoResponse is a pool photo embedded in page and contribution payloads.
type PhotoResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Note   string `json:"note"`
	Prompt string `json:"prompt"`
}

// PageResponse carries a page with its photo references hydrated from the
// pool.
type PageResponse struct {
	ID     string          `json:"id"`
	Photos []PhotoResponse `json:"photos"`
	Layout string          `json:"layout"`
	Note   string          `json:"note"`
}

// BookResponse is the full book representation returned to owners and
// share-link viewers.
type BookResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Pages        []PageResponse  `json:"pages"`
	Photos       []PhotoResponse `json:"photos"`
	ShareID      string          `json:"shareId"`
	ContributeID string          `json:"contributeId"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// UploadResponse describes a stored file.
type UploadResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// ContributionResponse is one submitted photo record.
type ContributionResponse struct {
	ID            string    `json:"id"`
	PhotoID       string    `json:"photoId"`
	URL           string    `json:"url"`
	Note          string    `json:"note"`
	Prompt        string    `json:"prompt"`
	ContributedAt time.Time `json:"contributedAt"`
}

// Paginated wraps list responses.
type Paginated[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toBookResponse(b *book.Book) BookResponse {
	editor := book.NewEditor(b)
	pages := make([]PageResponse, 0, len(b.Pages))
	for _, page := range b.Pages {
		pr := PageResponse{
			ID:     page.ID,
			Photos: make([]PhotoResponse, 0, len(page.PhotoIDs)),
			Layout: string(page.Layout),
			Note:   page.Note,
		}
		for _, p := range editor.ResolveByIDs(page.PhotoIDs) {
			pr.Photos = append(pr.Photos, PhotoResponse{ID: p.ID, URL: p.URL, Note: p.Note, Prompt: p.Prompt})
		}
		pages = append(pages, pr)
	}
	pool := make([]PhotoResponse, 0, len(b.Photos))
	for _, p := range b.Photos {
		pool = append(pool, PhotoResponse{ID: p.ID, URL: p.URL, Note: p.Note, Prompt: p.Prompt})
	}
	return BookResponse{
		ID:           b.ID,
		Name:         b.Name,
		Type:         b.Type,
		Pages:        pages,
		Photos:       pool,
		ShareID:      b.ShareID,
		ContributeID: b.ContributeID,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func toContributionResponse(c book.Contribution) ContributionResponse {
	return ContributionResponse{
		ID:            c.ID,
		PhotoID:       c.PhotoID,
		URL:           c.URL,
		Note:          c.Note,
		Prompt:        c.Prompt,
		ContributedAt: c.ContributedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorEnvelope{Error: apiErrorBody{Code: code, Message: message}})
}
