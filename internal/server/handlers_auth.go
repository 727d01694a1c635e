package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/namnn9x/remi/internal/auth"
	"github.com/namnn9x/remi/internal/storage"
)

type authData struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token,omitempty"`
}

type authEnvelope struct {
	Message string   `json:"message,omitempty"`
	Data    authData `json:"data"`
}

func toUserResponse(u *storage.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

func (app *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "email, password and name are required")
		return
	}

	user, token, err := app.auth.Register(req.Email, req.Password, req.Name)
	if errors.Is(err, auth.ErrEmailTaken) {
		writeError(w, http.StatusConflict, CodeConflict, "email already registered")
		return
	}
	if err != nil {
		app.log.Error().Err(err).Msg("register failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to register")
		return
	}

	writeJSON(w, http.StatusCreated, authEnvelope{
		Message: "registered",
		Data:    authData{User: toUserResponse(user), Token: token},
	})
}

func (app *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	user, token, err := app.auth.Login(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		app.log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, authEnvelope{
		Data: authData{User: toUserResponse(user), Token: token},
	})
}

func (app *App) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
		return
	}
	userID := app.requireUser(w, r)
	if userID == "" {
		return
	}
	user, err := app.db.GetUser(userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "account no longer exists")
		return
	}
	if err != nil {
		app.log.Error().Err(err).Msg("current user lookup failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]UserResponse{"data": toUserResponse(user)})
}
