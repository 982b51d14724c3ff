package ports

import (
	"context"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
)

type SessionRepository interface {
	Load(ctx context.Context, server string) (domain.StoredSession, error)
	Save(ctx context.Context, session domain.StoredSession) error
	Delete(ctx context.Context, server string) error
}
