package fakebackend

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-dept-admin/authapi"
	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Account is a backend user able to log in to the portal.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         session.Role
	TenantID     string
	UniversityID string
	FacultyID    *string
	DepartmentID *string
}

// Backend is an in-memory stand-in for the portal's REST backend.
// It issues HS256 tokens at /auth/login and guards /api/{resource} with them.
type Backend struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time

	lock        sync.RWMutex
	accounts    map[string]*Account // keyed by lower-cased email
	resources   map[string]any
	revoked     map[string]struct{} // token IDs
	forceStatus int
	logins      int

	mux *http.ServeMux
}

type Option func(*Backend)

// WithNowTime overrides the clock used for token issue and expiry.
func WithNowTime(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.tokenTTL = ttl
	}
}

func New(secret string, options ...Option) *Backend {
	b := &Backend{
		secret:    []byte(secret),
		tokenTTL:  time.Hour,
		now:       time.Now,
		accounts:  make(map[string]*Account),
		resources: make(map[string]any),
		revoked:   make(map[string]struct{}),
		mux:       http.NewServeMux(),
	}
	for _, opt := range options {
		opt(b)
	}

	b.mux.HandleFunc("POST "+authapi.LoginPath, b.handleLogin)
	b.mux.HandleFunc("GET /api/{resource}", b.requireBearer(b.handleResource))
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// AddAccount registers an account, hashing the password with bcrypt.
func (b *Backend) AddAccount(account Account, password string) error {
	if account.Email == "" {
		return errors.New("[AddAccount] email is required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "[AddAccount] HashPassword")
	}
	account.PasswordHash = hash
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	b.accounts[strings.ToLower(account.Email)] = &account
	return nil
}

// SetResource sets the JSON payload served at /api/{name}.
func (b *Backend) SetResource(name string, payload any) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.resources[name] = payload
}

// Revoke invalidates an issued token; later requests bearing it get 401.
func (b *Backend) Revoke(rawToken string) error {
	claims, err := b.verify(rawToken)
	if err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.revoked[claims.ID] = struct{}{}
	return nil
}

// ForceLoginStatus makes every login answer with the given status. Zero restores normal behaviour.
func (b *Backend) ForceLoginStatus(status int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.forceStatus = status
}

// Logins is the number of successful logins served.
func (b *Backend) Logins() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.logins
}

type tokenClaims struct {
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	TenantID string   `json:"tid,omitempty"`
	jwtlib.RegisteredClaims
}

// IssueToken signs an access token for the account.
func (b *Backend) IssueToken(account *Account) (string, error) {
	now := b.now()
	claims := tokenClaims{
		Email:    account.Email,
		Roles:    []string{string(account.Role)},
		TenantID: account.TenantID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(b.tokenTTL)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

func (b *Backend) verify(rawToken string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwtlib.ParseWithClaims(rawToken, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.secret, nil
	}, jwtlib.WithTimeFunc(b.now), jwtlib.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
