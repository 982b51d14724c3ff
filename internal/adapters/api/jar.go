package api

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
)

// SessionJar is a cookie jar that remembers the full cookies the backend
// set, so they can be written to disk and restored by a later run.
type SessionJar struct {
	inner *cookiejar.Jar

	mu      sync.Mutex
	cookies map[string]*http.Cookie
}

var _ http.CookieJar = (*SessionJar)(nil)

func NewSessionJar() (*SessionJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &SessionJar{inner: inner, cookies: make(map[string]*http.Cookie)}, nil
}

func (j *SessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)

	now := time.Now()
	for _, cookie := range cookies {
		stored := *cookie
		if stored.Domain == "" {
			stored.Domain = u.Hostname()
		}
		if stored.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(stored.MaxAge) * time.Second)
		}
		if stored.MaxAge < 0 || (!stored.Expires.IsZero() && !stored.Expires.After(now)) {
			delete(j.cookies, stored.Name)
			continue
		}
		j.cookies[stored.Name] = &stored
	}
}

func (j *SessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.inner.Cookies(u)
}

// Export returns the cookies to persist, sorted by name.
func (j *SessionJar) Export() []domain.SessionCookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]domain.SessionCookie, 0, len(j.cookies))
	for _, cookie := range j.cookies {
		out = append(out, domain.SessionCookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires.UTC(),
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HttpOnly,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Restore loads persisted cookies for the server at baseURL.
func (j *SessionJar) Restore(baseURL string, cookies []domain.SessionCookie) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse server url: %w", err)
	}

	restored := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		restored = append(restored, &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     path,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HTTPOnly,
		})
	}
	j.SetCookies(u, restored)
	return nil
}
