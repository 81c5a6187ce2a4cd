package handlers

import (
	"errors"
	"net/http"

	"taskboard/internal/auth"
	"taskboard/internal/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers an account and returns a session.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.accounts.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// SignIn exchanges email and password for a session.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// Refresh exchanges a refresh token for a new session.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.respondAuthError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// SignOut acknowledges a sign-out.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r.Header.Get("Authorization"))
	if err := h.accounts.SignOut(r.Context(), token); err != nil {
		h.respondAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recover accepts a password recovery request.
func (h *Handlers) Recover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.accounts.Recover(r.Context(), req.Email); err != nil {
		h.respondAuthError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUserExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
	default:
		h.respondServerError(w, r, err)
	}
}
