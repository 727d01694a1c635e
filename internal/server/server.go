package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/namnn9x/remi/internal/auth"
	"github.com/namnn9x/remi/internal/live"
	"github.com/namnn9x/remi/internal/storage"
)

// Writing prompts attached to uploaded and contributed photos.
var prompts = []string{
	"This moment happened when...",
	"What nobody knows about this photo is...",
	"If I could go back to that day, I would say...",
}

// ThumbnailCache stores generated thumbnails keyed by filename.
type ThumbnailCache struct {
	cache map[string][]byte
	mu    sync.RWMutex
}

// App owns the server's shared state and handlers.
type App struct {
	db             *storage.DB
	auth           *auth.Service
	hub            *live.Hub
	log            zerolog.Logger
	uploadDir      string
	thumbnailCache *ThumbnailCache
}

// NewApp wires the application together. The hub's Run loop is started
// here.
func NewApp(db *storage.DB, authService *auth.Service, uploadDir string, log zerolog.Logger) *App {
	hub := live.NewHub(log)
	go hub.Run()

	return &App{
		db:             db,
		auth:           authService,
		hub:            hub,
		log:            log,
		uploadDir:      uploadDir,
		thumbnailCache: &ThumbnailCache{cache: make(map[string][]byte)},
	}
}

// Routes returns the mux with every endpoint registered.
func (app *App) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/register", app.handleRegister)
	mux.HandleFunc("/api/auth/login", app.handleLogin)
	mux.HandleFunc("/api/auth/me", app.handleCurrentUser)

	mux.HandleFunc("/api/memory-books", app.handleBooks)
	mux.HandleFunc("/api/memory-books/", app.handleBookSubtree)

	mux.HandleFunc("/api/upload", app.handleUpload)
	mux.HandleFunc("/api/images/", app.handleImage)
	mux.HandleFunc("/api/thumbnails/", app.handleThumbnail)

	mux.HandleFunc("/ws", app.handleWebSocket)

	return mux
}

// generateID returns a short URL-safe random slug, used for the public
// share and contribute identifiers.
func generateID(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return base64.URLEncoding.EncodeToString(bytes)[:length]
}

// currentUserID resolves the bearer token to a user id; empty when the
// request is unauthenticated or the token is invalid.
func (app *App) currentUserID(r *http.Request) string {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return ""
	}
	userID, err := app.auth.VerifyToken(token)
	if err != nil {
		return ""
	}
	return userID
}

// requireUser writes a 401 and returns empty when the request carries no
// valid token.
func (app *App) requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := app.currentUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing or invalid token")
	}
	return userID
}

// pagination parses limit/offset query params with bounds.
func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func (app *App) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	bookID := r.URL.Query().Get("bookId")
	if bookID == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "bookId required")
		return
	}
	if err := app.hub.ServeWS(w, r, bookID); err != nil {
		app.log.Warn().Err(err).Msg("websocket upgrade failed")
	}
}
