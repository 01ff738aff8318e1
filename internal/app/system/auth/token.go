package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// CookieName is the httpOnly cookie that carries the access token.
const CookieName = "token"

// Claims is the JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// UserFetcher loads the current state of a user so role changes take
// effect without waiting for the token to expire. A nil user with a nil
// error means the account no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, id string) (*SessionUser, error)
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret  []byte
	expiry  time.Duration
	secure  bool
	fetcher UserFetcher
	log     *zap.Logger
}

// MinSecretLen is the shortest signing secret NewTokenManager accepts.
// Production config demands more; see bootstrap validation.
const MinSecretLen = 16

// NewTokenManager validates the secret and returns a manager.
// secure marks the cookie Secure (production, HTTPS).
func NewTokenManager(secret string, expiry time.Duration, secure bool, logger *zap.Logger) (*TokenManager, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwt secret too short; provide at least %d characters", MinSecretLen)
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
		secure: secure,
		log:    logger,
	}, nil
}

// SetUserFetcher makes LoadUser refresh the user from the database on each request.
func (m *TokenManager) SetUserFetcher(f UserFetcher) {
	m.fetcher = f
}

// Issue signs a token for userID/role and returns it with its expiry.
func (m *TokenManager) Issue(userID, role string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.expiry)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return s, exp, nil
}

// Parse verifies signature, algorithm, and expiry.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("token is invalid")
	}
	return claims, nil
}

// SetCookie writes the token cookie.
func (m *TokenManager) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite(),
	})
}

// ClearCookie expires the token cookie.
func (m *TokenManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite(),
	})
}

func (m *TokenManager) sameSite() http.SameSite {
	if m.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// LoadUser injects the user into context when the request carries a valid
// token (Authorization: Bearer or the token cookie). Invalid or missing
// tokens leave the request anonymous; guards decide what that means.
func (m *TokenManager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.Parse(raw)
		if err != nil {
			m.log.Debug("ignoring invalid token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		u := &SessionUser{ID: claims.UserID, Role: claims.Role}
		if m.fetcher != nil {
			fresh, err := m.fetcher.FetchUser(r.Context(), claims.UserID)
			if err != nil {
				m.log.Warn("user fetch failed; using token claims",
					zap.String("user_id", claims.UserID), zap.Error(err))
			} else if fresh == nil {
				next.ServeHTTP(w, r)
				return
			} else {
				u = fresh
			}
		}
		next.ServeHTTP(w, WithUser(r, u))
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
