package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/borderdesk/visatrack/pkg/auth"
	"github.com/borderdesk/visatrack/pkg/logger"
)

// Register creates an officer account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil ||
		in.Email == "" || in.Password == "" || in.Name == "" {
		writeError(w, http.StatusBadRequest, "email, password and name are required")
		return
	}
	if !strings.Contains(in.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := h.officers.FindByEmail(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check existing account")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	officer, err := h.officers.Create(r.Context(), email, hash, in.Name, "officer")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to create account")
		return
	}

	logger.InfoContext(r.Context(), "Officer registered", "officer_id", officer.ID, "email", officer.Email)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    officer.ID,
		"email": officer.Email,
		"name":  officer.Name,
		"role":  officer.Role,
	})
}

// Me returns the authenticated officer's account.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	officer, err := h.officers.FindByID(r.Context(), claims.Sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load account")
		return
	}
	if officer == nil {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}

	writeJSON(w, http.StatusOK, officer)
}

// Login verifies credentials and issues an access token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	officer, err := h.officers.FindByEmail(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up account")
		return
	}
	if officer == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	ok, err := argon2id.ComparePasswordAndHash(in.Password, officer.PasswordHash)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.NewAccessToken(officer.ID, officer.Email, officer.Role, h.config.Auth.JWTSecret, h.config.Auth.AccessTokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"officer": map[string]any{
			"id": officer.ID, "email": officer.Email, "name": officer.Name, "role": officer.Role,
		},
	})
}
