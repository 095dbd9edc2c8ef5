package fakebackend

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-dept-admin/authapi"
)

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.lock.RLock()
	forced := b.forceStatus
	b.lock.RUnlock()
	if forced != 0 {
		writeError(w, forced, "forced", http.StatusText(forced))
		return
	}

	var creds authapi.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "email and password are required")
		return
	}

	b.lock.RLock()
	account, ok := b.accounts[strings.ToLower(creds.Email)]
	b.lock.RUnlock()
	if !ok || !CheckPasswordHash(creds.Password, account.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	token, err := b.IssueToken(account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "could not issue token")
		return
	}

	b.lock.Lock()
	b.logins++
	b.lock.Unlock()

	writeJSON(w, http.StatusOK, authapi.LoginResponse{
		Token:        token,
		Role:         string(account.Role),
		TenantID:     account.TenantID,
		UniversityID: account.UniversityID,
		FacultyID:    account.FacultyID,
		DepartmentID: account.DepartmentID,
		Email:        account.Email,
	})
}

func (b *Backend) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		claims, err := b.verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		b.lock.RLock()
		_, revoked := b.revoked[claims.ID]
		b.lock.RUnlock()
		if revoked {
			writeError(w, http.StatusUnauthorized, "unauthorized", "token revoked")
			return
		}
		next(w, r)
	}
}

func (b *Backend) handleResource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("resource")

	b.lock.RLock()
	payload, ok := b.resources[name]
	b.lock.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
