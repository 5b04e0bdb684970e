package middleware

import (
	"net/http"

	"timetable-lookup/services"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

type session struct {
	id      string
	manager *services.SessionManager
	secure  bool
}

// Session читает cookie сессии. Невалидные и просроченные cookie
// игнорируются, новую сессию выдаёт только StartSession
func Session(manager *services.SessionManager, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := &session{manager: manager, secure: secure}
		if value, err := c.Cookie(services.SessionCookieName); err == nil {
			if id, err := manager.Parse(value); err == nil {
				s.id = id
			}
		}

		c.Set(sessionKey, s)
		c.Next()
	}
}

// SessionID возвращает id текущей сессии или пустую строку
func SessionID(c *gin.Context) string {
	if s, ok := sessionFrom(c); ok {
		return s.id
	}
	return ""
}

// StartSession возвращает id сессии, при необходимости выдаёт новую cookie
func StartSession(c *gin.Context) (string, error) {
	s, ok := sessionFrom(c)
	if !ok {
		return "", services.ErrInvalidSession
	}
	if s.id != "" {
		return s.id, nil
	}

	id, value, err := s.manager.New()
	if err != nil {
		return "", err
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(services.SessionCookieName, value, int(s.manager.MaxAge().Seconds()), "/", "", s.secure, true)
	s.id = id
	return id, nil
}

func sessionFrom(c *gin.Context) (*session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	s, ok := v.(*session)
	return s, ok
}
