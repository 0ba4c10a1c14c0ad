package mapper

import (
	"encoding/json"
	"fmt"

	"ai-speechcoach-be/internal/entity"
	"ai-speechcoach-be/internal/model"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToModel(s *entity.Session) (*model.Session, error) {
	if s == nil {
		return nil, nil
	}

	transcript, err := json.Marshal(s.Transcript)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}
	metrics, err := json.Marshal(s.MetricsHistory)
	if err != nil {
		return nil, fmt.Errorf("marshal metrics history: %w", err)
	}

	out := &model.Session{
		Id:              s.Id,
		UserId:          s.UserId,
		Mode:            s.Mode,
		VoiceName:       s.VoiceName,
		StartedAt:       s.StartedAt,
		DurationSeconds: s.DurationSeconds,
		Transcript:      transcript,
		MetricsHistory:  metrics,
	}

	if s.Report != nil {
		report, err := json.Marshal(s.Report)
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
		out.Report = report
	}

	return out, nil
}

func (m *SessionMapper) ToEntity(s *model.Session) (*entity.Session, error) {
	if s == nil {
		return nil, nil
	}

	out := &entity.Session{
		Id:              s.Id,
		UserId:          s.UserId,
		Mode:            s.Mode,
		VoiceName:       s.VoiceName,
		StartedAt:       s.StartedAt,
		DurationSeconds: s.DurationSeconds,
	}

	if len(s.Transcript) > 0 {
		if err := json.Unmarshal(s.Transcript, &out.Transcript); err != nil {
			return nil, fmt.Errorf("unmarshal transcript: %w", err)
		}
	}
	if len(s.MetricsHistory) > 0 {
		if err := json.Unmarshal(s.MetricsHistory, &out.MetricsHistory); err != nil {
			return nil, fmt.Errorf("unmarshal metrics history: %w", err)
		}
	}
	if len(s.Report) > 0 {
		var report entity.SessionReport
		if err := json.Unmarshal(s.Report, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		out.Report = &report
	}

	return out, nil
}
