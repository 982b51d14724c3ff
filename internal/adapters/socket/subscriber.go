// Package socket implements the push subscription to a lobby's event feed.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/ports"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultMinBackoff = 500 * time.Millisecond
	DefaultMaxBackoff = 30 * time.Second

	handshakeTimeout = 10 * time.Second
)

// Subscriber dials /events/{lobbyId} on the backend and keeps the
// connection open until the subscription context ends.
type Subscriber struct {
	BaseURL    string
	Jar        http.CookieJar
	Logger     *zap.Logger
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

var _ ports.Subscriber = Subscriber{}

func (s Subscriber) Subscribe(ctx context.Context, lobbyID domain.ObjectID) <-chan ports.PushMessage {
	out := make(chan ports.PushMessage)
	if lobbyID.IsZero() {
		close(out)
		return out
	}

	go s.run(ctx, lobbyID, out)
	return out
}

func (s Subscriber) run(ctx context.Context, lobbyID domain.ObjectID, out chan<- ports.PushMessage) {
	defer close(out)

	logger := s.logger().With(zap.String("lobby", lobbyID.String()))
	endpoint, err := SocketURL(s.BaseURL, lobbyID)
	if err != nil {
		logger.Error("cannot subscribe", zap.Error(err))
		return
	}

	backoff := s.minBackoff()
	for {
		opened, err := s.session(ctx, endpoint, out, logger)
		if ctx.Err() != nil {
			return
		}
		if opened {
			backoff = s.minBackoff()
		}
		logger.Warn("event socket dropped", zap.Error(err), zap.Duration("retry_in", backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff = min(backoff*2, s.maxBackoff())
	}
}

// session holds one connection until it fails. opened reports whether the
// handshake succeeded.
func (s Subscriber) session(ctx context.Context, endpoint string, out chan<- ports.PushMessage, logger *zap.Logger) (opened bool, err error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Jar:              s.Jar,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	})
	defer stop()

	logger.Debug("event socket opened")
	if !send(ctx, out, ports.Connected{}) {
		return true, ctx.Err()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		msg, err := DecodeFrame(data)
		if err != nil {
			logger.Warn("skipping malformed frame", zap.Error(err))
			continue
		}
		if !send(ctx, out, msg) {
			return true, ctx.Err()
		}
	}
}

func send(ctx context.Context, out chan<- ports.PushMessage, msg ports.PushMessage) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s Subscriber) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s Subscriber) minBackoff() time.Duration {
	if s.MinBackoff > 0 {
		return s.MinBackoff
	}
	return DefaultMinBackoff
}

func (s Subscriber) maxBackoff() time.Duration {
	if s.MaxBackoff > 0 {
		return max(s.MaxBackoff, s.minBackoff())
	}
	return DefaultMaxBackoff
}

// SocketURL maps the backend base URL onto the websocket endpoint of a
// lobby.
func SocketURL(baseURL string, lobbyID domain.ObjectID) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("server url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("server url host is required")
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/events/" + url.PathEscape(lobbyID.String())
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

type frame struct {
	Type    string           `json:"type"`
	Player  *domain.ObjectID `json:"player"`
	Payload *updateFrame     `json:"payload"`
	updateFrame
}

type updateFrame struct {
	Lobby  *domain.Lobby  `json:"lobby"`
	Events []domain.Event `json:"events"`
}

// DecodeFrame parses one socket frame. The backend sends typed frames
// ({"type": "kick"|"update"}) and, in older deployments, bare
// {lobby, events} updates.
func DecodeFrame(data []byte) (ports.PushMessage, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch f.Type {
	case "kick":
		var player *domain.ObjectID
		if f.Player != nil && !f.Player.IsZero() {
			player = f.Player
		}
		return ports.Kicked{PlayerID: player}, nil
	case "update":
		if f.Payload == nil {
			return nil, errors.New("update frame without payload")
		}
		return f.Payload.message()
	case "":
		return f.updateFrame.message()
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
}

func (u updateFrame) message() (ports.PushMessage, error) {
	if u.Lobby == nil {
		return nil, errors.New("update frame without lobby")
	}
	return ports.LobbyUpdate{Lobby: *u.Lobby, Events: u.Events}, nil
}
