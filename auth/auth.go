/*
Package auth handles passwords, tokens and role gating.

PURPOSE:
  Three concerns, kept thin:
  - Passwords: bcrypt hash and verify
  - Tokens: signed JWTs carrying the user's id, role and scope ids
  - Middleware: request gating by token validity and role

SCOPE IDS:
  A fleet manager token carries its organization id and a station token
  its station id. Handlers use these to restrict what a caller may touch;
  a super admin carries neither and may touch everything.

SEE ALSO:
  - bootstrap.go: first-run admin seeding
  - directory/types.go: the Role constants
*/
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/frotagov/fuel-ledger/directory"
)

var (
	// ErrBadCredentials is returned for unknown usernames and wrong
	// passwords alike, so callers cannot probe which usernames exist.
	ErrBadCredentials = errors.New("auth: invalid credentials")

	// ErrBadToken is returned for missing, malformed, expired or
	// wrongly-signed tokens.
	ErrBadToken = errors.New("auth: invalid token")
)

// =============================================================================
// PASSWORDS
// =============================================================================

// HashPassword produces a bcrypt hash at the default cost.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword verifies plain against a stored bcrypt hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// =============================================================================
// TOKENS
// =============================================================================

// Claims is the token payload.
type Claims struct {
	Role      directory.Role `json:"role"`
	OrgID     string         `json:"org_id,omitempty"`
	StationID string         `json:"station_id,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies tokens and performs logins against the
// directory.
type Service struct {
	dir    directory.Directory
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(dir directory.Directory, secret []byte, ttl time.Duration) *Service {
	return &Service{dir: dir, secret: secret, ttl: ttl, now: time.Now}
}

// Login verifies the credentials and returns a signed token plus the user
// record (for the response body; the password hash is on it, callers must
// not serialize it back out).
func (s *Service) Login(ctx context.Context, username, password string) (string, *directory.User, error) {
	user, err := s.dir.GetUserByUsername(ctx, username)
	if err == directory.ErrNotFound {
		return "", nil, ErrBadCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrBadCredentials
	}

	token, err := s.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Issue signs a token for the user.
func (s *Service) Issue(user *directory.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role:      user.Role,
		OrgID:     user.OrgID,
		StationID: user.StationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies the signature and expiry and returns the claims.
func (s *Service) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrBadToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrBadToken
	}
	return claims, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type contextKey struct{}

// FromContext returns the claims the middleware attached, or nil.
func FromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(contextKey{}).(*Claims)
	return c
}

// Middleware rejects requests without a valid bearer token and attaches
// the claims to the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}
		claims, err := s.Parse(token)
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	})
}

// RequireRole gates a route group to the listed roles. Must run after
// Middleware.
func RequireRole(roles ...directory.Role) func(http.Handler) http.Handler {
	allowed := make(map[directory.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := FromContext(r.Context())
			if claims == nil || !allowed[claims.Role] {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
