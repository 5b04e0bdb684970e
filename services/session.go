package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const SessionCookieName = "timetable.sid"

var ErrInvalidSession = errors.New("invalid session cookie")

// SessionManager выдаёт и проверяет cookie сессий. Id сессии лежит в HS256
// токене (SESSION_SECRET), а значение cookie дополнительно подписано COOKIE_SECRET
type SessionManager struct {
	sessionSecret []byte
	cookieSecret  []byte
	maxAge        time.Duration
	now           func() time.Time
}

func NewSessionManager(sessionSecret, cookieSecret string, maxAge time.Duration) *SessionManager {
	return &SessionManager{
		sessionSecret: []byte(sessionSecret),
		cookieSecret:  []byte(cookieSecret),
		maxAge:        maxAge,
		now:           time.Now,
	}
}

func (m *SessionManager) MaxAge() time.Duration {
	return m.maxAge
}

// New создаёт сессию и возвращает её id и значение cookie
func (m *SessionManager) New() (string, string, error) {
	id := uuid.New().String()
	now := m.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
	})
	signed, err := token.SignedString(m.sessionSecret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign session: %w", err)
	}

	return id, m.signCookie(signed), nil
}

// Parse проверяет значение cookie и возвращает id сессии
func (m *SessionManager) Parse(value string) (string, error) {
	signed, ok := m.unsignCookie(value)
	if !ok {
		return "", ErrInvalidSession
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		return m.sessionSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.ID == "" {
		return "", ErrInvalidSession
	}
	return claims.ID, nil
}

// signCookie - формат подписанной cookie "s:<value>.<mac>"
func (m *SessionManager) signCookie(value string) string {
	return "s:" + value + "." + m.mac(value)
}

func (m *SessionManager) unsignCookie(cookie string) (string, bool) {
	if !strings.HasPrefix(cookie, "s:") {
		return "", false
	}
	cookie = strings.TrimPrefix(cookie, "s:")
	i := strings.LastIndex(cookie, ".")
	if i < 0 {
		return "", false
	}
	value, sig := cookie[:i], cookie[i+1:]
	if !hmac.Equal([]byte(sig), []byte(m.mac(value))) {
		return "", false
	}
	return value, true
}

func (m *SessionManager) mac(value string) string {
	h := hmac.New(sha256.New, m.cookieSecret)
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
