package implementation

import (
	"context"
	"errors"

	"ai-speechcoach-be/internal/entity"
	"ai-speechcoach-be/internal/mapper"
	"ai-speechcoach-be/internal/model"
	"ai-speechcoach-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

func (r *SessionRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	var m model.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *SessionRepositoryImpl) ListByUser(ctx context.Context, userId string) ([]*entity.SessionSummary, error) {
	var models []*model.Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("started_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	summaries := make([]*entity.SessionSummary, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(e))
	}
	return summaries, nil
}

func summarize(s *entity.Session) *entity.SessionSummary {
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
	return summary
}
