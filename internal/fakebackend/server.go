// Package fakebackend is an in-memory lobby backend speaking the same HTTP
// and websocket protocol as the real server. It backs the CLI tests and the
// dev-server command.
package fakebackend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionCookieName = "lobbyopoly_session"
	DefaultLobbyTTL   = 24 * time.Hour

	sessionMaxAge   = 30 * 24 * 60 * 60
	maxRequestBytes = 1 << 20
)

// apiError is a backend error code returned in the response envelope.
type apiError string

func (e apiError) Error() string {
	return string(e)
}

type Options struct {
	// Msgpack switches every API response to the msgpack codec.
	Msgpack  bool
	LobbyTTL time.Duration
	Clock    ports.Clock
	Logger   *zap.Logger
}

type session struct {
	lobbyID  domain.ObjectID
	playerID domain.ObjectID
}

type Server struct {
	opts   Options
	clock  ports.Clock
	logger *zap.Logger

	mu       sync.Mutex
	lobbies  map[domain.ObjectID]*lobbyRecord
	codes    map[string]domain.ObjectID
	sessions map[string]*session
}

func New(opts Options) *Server {
	if opts.LobbyTTL <= 0 {
		opts.LobbyTTL = DefaultLobbyTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		opts:     opts,
		clock:    clock,
		logger:   logger,
		lobbies:  make(map[domain.ObjectID]*lobbyRecord),
		codes:    make(map[string]domain.ObjectID),
		sessions: make(map[string]*session),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/preflight", s.endpoint(s.preflight))
		r.Post("/create", s.endpoint(s.create))
		r.Post("/join", s.endpoint(s.join))
		r.Get("/poll", s.endpoint(s.poll))
		r.Get("/events", s.endpoint(s.events))
		r.Get("/leave", s.endpoint(s.leave))
		r.Get("/disband", s.endpoint(s.disband))
		r.Post("/transfer", s.endpoint(s.transfer))
		r.Post("/kick", s.endpoint(s.kick))
		r.Post("/promote", s.endpoint(s.promote))
	})
	r.Get("/events/{lobbyID}", s.handleSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

type sessionKey struct{}

// withSession attaches the caller's session, issuing a cookie on first
// contact.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var sess *session
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			sess = s.sessions[cookie.Value]
		}
		if sess == nil {
			token := uuid.NewString()
			sess = &session{}
			s.sessions[token] = sess
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   sessionMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		s.mu.Unlock()

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

type handlerFunc func(sess *session, body []byte) (any, error)

func (s *Server) endpoint(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			s.respond(w, nil, apiError(ErrMalformedRequest))
			return
		}

		sess, _ := r.Context().Value(sessionKey{}).(*session)
		payload, err := fn(sess, body)
		if err != nil {
			s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
		}
		s.respond(w, payload, err)
	}
}

func (s *Server) respond(w http.ResponseWriter, payload any, err error) {
	code := ""
	if err != nil {
		var apiErr apiError
		if !errors.As(err, &apiErr) {
			s.logger.Error("request failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		code = string(apiErr)
	}

	if s.opts.Msgpack {
		s.respondMsgpack(w, payload, code)
		return
	}

	body := map[string]any{}
	if code != "" {
		body["error"] = code
	} else if payload != nil {
		body["payload"] = payload
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}

func (s *Server) respondMsgpack(w http.ResponseWriter, payload any, code string) {
	body := map[string]any{}
	if code != "" {
		body["__error__"] = code
	} else if payload != nil {
		body["payload"] = payload
	}

	encoded, err := encodeMsgpack(body)
	if err != nil {
		s.logger.Error("encode msgpack response", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/msgpack")
	if _, err := w.Write(encoded); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}

func decodeBody[T any](body []byte, into *T) error {
	if len(body) == 0 {
		return apiError(ErrMalformedRequest)
	}
	if err := json.Unmarshal(body, into); err != nil {
		return apiError(ErrMalformedRequest)
	}
	return nil
}
