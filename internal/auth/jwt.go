package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of a candidate token
const DefaultTokenTTL = 7 * 24 * time.Hour

const issuer = "arunika-interview"

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator signs and validates candidate tokens with an HMAC secret
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. A zero ttl uses DefaultTokenTTL.
func NewAuthenticator(secret string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// GenerateUserToken generates a JWT token for a candidate
func (a *Authenticator) GenerateUserToken(userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := a.now()
	claims := &JWTClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (a *Authenticator) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}

// TokenFromRequest extracts a bearer token from the Authorization header, or
// from the token query parameter for browser WebSocket clients
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

// UserFromRequest returns the authenticated user of the request. Requests
// without a valid token are anonymous and yield an empty user id.
func (a *Authenticator) UserFromRequest(r *http.Request) (string, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return "", nil
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}
