package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	SessionPathKey    = "session.path"
	sessionFileMode   = 0o600
	sessionDirMode    = 0o700
	sessionConfigDir  = ".lobbyopoly"
	sessionConfigFile = "session.toml"
	tempFilePattern   = ".session-*.toml.tmp"
	timeLayout        = time.RFC3339
)

// Repository stores one backend session per server URL in a TOML file.
type Repository struct {
	sessionPath string
	mu          *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*Repository)(nil)

// DefaultSessionPath is ~/.lobbyopoly/session.toml.
func DefaultSessionPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, sessionConfigDir, sessionConfigFile), nil
}

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	sessionPath := cfg.GetString(SessionPathKey)
	if sessionPath == "" {
		defaultPath, err := DefaultSessionPath()
		if err != nil {
			return nil, err
		}
		sessionPath = defaultPath
	}

	sessionPath, err := normalizeSessionPath(sessionPath)
	if err != nil {
		return nil, err
	}

	return &Repository{sessionPath: sessionPath, mu: lockForPath(sessionPath)}, nil
}

func (r *Repository) Path() string {
	return r.sessionPath
}

func (r *Repository) Load(ctx context.Context, server string) (domain.StoredSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredSession{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.StoredSession{}, err
	}

	server = domain.NormalizeServerURL(server)
	for _, entry := range file.Sessions {
		if domain.NormalizeServerURL(entry.Server) == server {
			return fromSchema(entry), nil
		}
	}

	return domain.StoredSession{}, domain.ErrSessionNotFound
}

func (r *Repository) Save(ctx context.Context, session domain.StoredSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if domain.NormalizeServerURL(session.Server) == "" {
		return errors.New("session server is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(session)
	updated := false
	for i := range file.Sessions {
		if domain.NormalizeServerURL(file.Sessions[i].Server) == encoded.Server {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) Delete(ctx context.Context, server string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	server = domain.NormalizeServerURL(server)
	kept := file.Sessions[:0]
	for _, entry := range file.Sessions {
		if domain.NormalizeServerURL(entry.Server) != server {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(file.Sessions) {
		return nil
	}
	file.Sessions = kept

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.sessionPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read session file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode session file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.sessionPath), sessionDirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.sessionPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}

	if err := tempFile.Chmod(sessionFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tempName, r.sessionPath); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.sessionPath, sessionFileMode); err != nil {
		return fmt.Errorf("chmod session file: %w", err)
	}

	return nil
}

func normalizeSessionPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve session path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func toSchema(session domain.StoredSession) sessionSchema {
	cookies := make([]cookieSchema, 0, len(session.Cookies))
	for _, cookie := range session.Cookies {
		cookies = append(cookies, cookieSchema{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  formatTime(cookie.Expires),
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HTTPOnly,
		})
	}

	return sessionSchema{
		Server:    domain.NormalizeServerURL(session.Server),
		UpdatedAt: formatTime(session.UpdatedAt),
		Cookies:   cookies,
	}
}

func fromSchema(entry sessionSchema) domain.StoredSession {
	cookies := make([]domain.SessionCookie, 0, len(entry.Cookies))
	for _, cookie := range entry.Cookies {
		cookies = append(cookies, domain.SessionCookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  parseTime(cookie.Expires),
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HTTPOnly,
		})
	}

	return domain.StoredSession{
		Server:    domain.NormalizeServerURL(entry.Server),
		Cookies:   cookies,
		UpdatedAt: parseTime(entry.UpdatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(timeLayout)
}
