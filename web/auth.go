package web

// auth.go provides the login endpoint and the bearer-token middleware
// guarding the back-office routes.

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// handleLogin verifies a username and password and issues an API
// bearer token. Unknown users and wrong passwords get the same
// response.
func (web *WebApp) handleLogin() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &LoginPayload{}
		if err := decodeJSON(r, payload); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		validator := NewValidator()
		payload.Validate(validator)
		if !validator.Valid() {
			web.invalid(w, validator)
			return
		}

		user, err := web.db.UserByUsername(ctx, payload.Username)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.clientError(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			web.ServerError(w, r, err)
			return
		}
		if err := bcrypt.CompareHashAndPassword(
			[]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
			web.clientError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		tokenString, err := web.signer.IssueAPI(user.Username, web.cfg.Auth.TokenLifetime)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		web.respondJSON(w, http.StatusOK, struct {
			Success bool   `json:"success"`
			Token   string `json:"token"`
		}{
			Success: true,
			Token:   tokenString,
		})
	})
}

// requireAuth guards next behind a bearer token issued by handleLogin.
func (web *WebApp) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			web.clientError(w, "authorization required", http.StatusUnauthorized)
			return
		}
		if _, err := web.signer.VerifyAPI(tokenString); err != nil {
			web.clientError(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
