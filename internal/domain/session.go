package domain

import (
	"strings"
	"time"
)

// SessionCookie is a persisted backend session cookie.
type SessionCookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
}

func (c SessionCookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}

// StoredSession ties the cookies the backend handed out to the server they
// belong to, so a later invocation resumes the same player session.
type StoredSession struct {
	Server    string
	Cookies   []SessionCookie
	UpdatedAt time.Time
}

func NormalizeServerURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// Live drops cookies that expired before now.
func (s StoredSession) Live(now time.Time) StoredSession {
	live := make([]SessionCookie, 0, len(s.Cookies))
	for _, cookie := range s.Cookies {
		if cookie.Expired(now) {
			continue
		}
		live = append(live, cookie)
	}
	s.Cookies = live
	return s
}
