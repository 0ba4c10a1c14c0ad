package contract

import (
	"context"

	"ai-speechcoach-be/internal/entity"

	"github.com/google/uuid"
)

// SessionRepository persists finished sessions and serves the read side.
// Save is an idempotent upsert keyed by session id; retrying after a partial
// failure must not duplicate. Get returns (nil, nil) for an unknown id.
type SessionRepository interface {
	Save(ctx context.Context, session *entity.Session) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	ListByUser(ctx context.Context, userId string) ([]*entity.SessionSummary, error)
}
