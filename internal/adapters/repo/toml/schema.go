package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported session schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	Server    string         `toml:"server"`
	UpdatedAt string         `toml:"updated_at,omitempty"`
	Cookies   []cookieSchema `toml:"cookies"`
}

type cookieSchema struct {
	Name     string `toml:"name"`
	Value    string `toml:"value"`
	Path     string `toml:"path,omitempty"`
	Domain   string `toml:"domain,omitempty"`
	Expires  string `toml:"expires,omitempty"`
	Secure   bool   `toml:"secure,omitempty"`
	HTTPOnly bool   `toml:"http_only,omitempty"`
}
