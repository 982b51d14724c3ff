package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/ports"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// Client is the HTTP transport to the lobby backend. Every response goes
// through the {error, payload} envelope; failures come back as
// *domain.RequestError.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

var _ ports.Transport = Client{}

func (c Client) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	endpoint, err := BuildURL(c.BaseURL, path)
	if err != nil {
		return nil, domain.NewTransportError(method, path, err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, domain.NewTransportError(method, path, fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return nil, domain.NewTransportError(method, path, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", contentTypeJSON+", "+contentTypeMsgpack)
	if reader != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	started := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, domain.NewTransportError(method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewTransportError(method, path, fmt.Errorf("read response: %w", err))
	}

	c.logger().Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	env, err := decodeEnvelope(mediaType(resp.Header.Get("Content-Type")), raw)
	if err != nil {
		if !isSuccess(resp.StatusCode) {
			return nil, domain.NewTransportError(method, path, fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil, domain.NewTransportError(method, path, err)
	}

	if env.Error != "" {
		return nil, domain.NewServerError(method, path, env.Error)
	}

	return env.Payload, nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func mediaType(header string) string {
	if header == "" {
		return contentTypeJSON
	}
	parsed, _, err := mime.ParseMediaType(header)
	if err != nil {
		return contentTypeJSON
	}
	return parsed
}

// BuildURL resolves path against the backend base URL.
func BuildURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("server url is required")
	}
	if path == "" {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("server url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("server url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
