package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"autoservice/internal/config"
	"autoservice/internal/console"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid token")
)

type contextKey string

const sessionKey contextKey = "consoleSession"

// Auth signs admins in against the configured bcrypt hashes and issues
// HMAC-signed tokens whose ID is the console session id.
type Auth struct {
	secret   []byte
	ttl      time.Duration
	users    map[string]string
	sessions *console.Registry
	now      func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewAuth(cfg config.AdminConfig, sessions *console.Registry) *Auth {
	users := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Username] = u.PasswordHash
	}
	return &Auth{
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.SessionTTL,
		users:    users,
		sessions: sessions,
		now:      time.Now,
		revoked:  make(map[string]time.Time),
	}
}

// Login opens a console session and returns its signed token.
func (a *Auth) Login(username, password string) (string, time.Time, *console.Session, error) {
	hash, ok := a.users[username]
	if !ok || len(a.secret) == 0 {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}

	session := a.sessions.Open(username)
	token, expiresAt, err := a.issue(session.ID, username)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expiresAt, session, nil
}

func (a *Auth) issue(sessionID, username string) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (a *Auth) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	if len(a.secret) == 0 {
		return nil, errInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.ID == "" || a.isRevoked(claims.ID) {
		return nil, errInvalidToken
	}
	if _, ok := a.users[claims.Subject]; !ok {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Revoke rejects the session's token until it would have expired anyway.
func (a *Auth) Revoke(sessionID string, until time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	for id, exp := range a.revoked {
		if now.After(exp) {
			delete(a.revoked, id)
		}
	}
	a.revoked[sessionID] = until
}

func (a *Auth) isRevoked(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.revoked[sessionID]
	return ok
}

// Middleware requires a valid token and attaches its console session,
// resuming it when the process restarted since login.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := a.parse(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		session := a.sessions.Resume(r.Context(), claims.ID, claims.Subject)
		ctx := context.WithValue(r.Context(), sessionKey, sessionContext{session: session, claims: claims})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type sessionContext struct {
	session *console.Session
	claims  *jwt.RegisteredClaims
}

func sessionFromContext(ctx context.Context) (*console.Session, *jwt.RegisteredClaims) {
	sc, ok := ctx.Value(sessionKey).(sessionContext)
	if !ok {
		return nil, nil
	}
	return sc.session, sc.claims
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter browsers must use for websockets.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
