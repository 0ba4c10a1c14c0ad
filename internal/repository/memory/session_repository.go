// Package memory is the in-process session store, used when no database
// connection string is configured and as the test double for the read side.
package memory

import (
	"context"
	"sort"
	"sync"

	"ai-speechcoach-be/internal/entity"
	"ai-speechcoach-be/internal/repository/contract"

	"github.com/google/uuid"
)

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entity.Session
}

func NewSessionRepository() contract.SessionRepository {
	return &SessionRepository{
		sessions: make(map[uuid.UUID]*entity.Session),
	}
}

func (r *SessionRepository) Save(_ context.Context, session *entity.Session) error {
	cp := *session
	r.mu.Lock()
	r.sessions[session.Id] = &cp
	r.mu.Unlock()
	return nil
}

func (r *SessionRepository) Get(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *SessionRepository) ListByUser(_ context.Context, userId string) ([]*entity.SessionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]*entity.SessionSummary, 0)
	for _, s := range r.sessions {
		if s.UserId != userId {
			continue
		}
		summary := &entity.SessionSummary{
			Id:              s.Id,
			Mode:            s.Mode,
			StartedAt:       s.StartedAt,
			DurationSeconds: s.DurationSeconds,
			VoiceName:       s.VoiceName,
		}
		if s.Report != nil {
			summary.OverallScore = s.Report.OverallScore
		}
		for _, e := range s.Transcript {
			if e.Role == entity.RoleUser {
				summary.PreviewText = e.Text
				break
			}
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}
