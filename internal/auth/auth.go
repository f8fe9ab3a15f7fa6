package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the verified identity attached to a request.
type Claims struct {
	Subject string
}

type jwtClaims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// Service verifies the shared credential and issues/validates bearer tokens.
type Service struct {
	secret   []byte
	password string
	tokenTTL time.Duration
}

func NewService(secret, password string) *Service {
	return &Service{secret: []byte(secret), password: password, tokenTTL: 24 * time.Hour}
}

// CheckPassword compares the supplied password against the configured shared
// credential. A credential with a bcrypt prefix is treated as a hash;
// otherwise the comparison is constant time.
func (s *Service) CheckPassword(supplied string) bool {
	if strings.HasPrefix(s.password, "$2a$") || strings.HasPrefix(s.password, "$2b$") || strings.HasPrefix(s.password, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(s.password), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s.password), []byte(supplied)) == 1
}

// IssueToken signs a 24h access token for the shared subject.
func (s *Service) IssueToken(subject string) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		User: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, ok := token.Claims.(*jwtClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return &Claims{Subject: c.User}, nil
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the token query parameter so media elements that cannot set
// headers can still authenticate.
func TokenFromRequest(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}

type ctxKey string

const claimsKey ctxKey = "claims"

func ClaimsFromContext(ctx context.Context) *Claims {
	val, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return nil
	}
	return val
}

// RequireToken rejects requests before any catalog or filesystem work runs:
// 401 when the token is absent, 403 when it is invalid or expired.
func (s *Service) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			errorJSON(w, http.StatusUnauthorized, "access token required")
			return
		}
		claims, err := s.ParseToken(token)
		if err != nil {
			errorJSON(w, http.StatusForbidden, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
