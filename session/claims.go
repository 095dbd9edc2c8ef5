package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
	"github.com/jrsteele09/go-dept-admin/internal/utils"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Claims are the display-only fields read from a JWT bearer token.
// The portal cannot verify the signature; the backend does that on every request.
type Claims struct {
	Subject   string
	Email     string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseClaims decodes the token payload without verifying it.
func ParseClaims(rawToken string) (*Claims, error) {
	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "[ParseClaims] token is not a JWT")
	}
	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("[ParseClaims] error extracting claims")
	}

	c := &Claims{}
	c.Subject, _ = mapClaims.GetSubject()
	c.Email, _ = mapClaims["email"].(string)
	c.Roles = utils.ToStringSlice(mapClaims["roles"])
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// Claims decodes the session token for display.
func (s Session) Claims() (*Claims, error) {
	return ParseClaims(s.Token)
}

// OAuth2Token renders the session credential as a bearer token.
func (s Session) OAuth2Token() *oauth2.Token {
	t := &oauth2.Token{AccessToken: s.Token, TokenType: "Bearer"}
	if claims, err := s.Claims(); err == nil {
		t.Expiry = claims.ExpiresAt
	}
	return t
}

// Token implements oauth2.TokenSource over the current session.
func (s *Store) Token() (*oauth2.Token, error) {
	current := s.Current()
	if current == nil {
		return nil, apperrors.ErrNoSession
	}
	return current.OAuth2Token(), nil
}

var _ oauth2.TokenSource = (*Store)(nil)
