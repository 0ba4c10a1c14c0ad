package dto

import (
	"time"

	"ai-speechcoach-be/internal/entity"
)

type ListSessionsRequest struct {
	UserId string `query:"userId" validate:"required"`
}

type SessionSummaryResponse struct {
	Id              string `json:"id"`
	Mode            string `json:"mode"`
	StartedAt       string `json:"started_at"`
	DurationSeconds int    `json:"duration_seconds"`
	OverallScore    int    `json:"overall_score"`
	PreviewText     string `json:"preview_text"`
	VoiceName       string `json:"voice_name"`
}

type SessionResponse struct {
	Id              string                   `json:"id"`
	UserId          string                   `json:"user_id"`
	Mode            string                   `json:"mode"`
	VoiceName       string                   `json:"voice_name"`
	StartedAt       string                   `json:"started_at"`
	DurationSeconds int                      `json:"duration_seconds"`
	Transcript      []entity.TranscriptEntry `json:"transcript"`
	MetricsHistory  []entity.MetricSnapshot  `json:"metrics_history"`
	Report          *entity.SessionReport    `json:"report"`
}

// SharedSessionResponse is the sanitized view behind a share key: the owner's
// user id is never exposed and the transcript only appears for full keys.
type SharedSessionResponse struct {
	Id              string                   `json:"id"`
	Mode            string                   `json:"mode"`
	VoiceName       string                   `json:"voice_name"`
	StartedAt       string                   `json:"started_at"`
	DurationSeconds int                      `json:"duration_seconds"`
	Report          *entity.SessionReport    `json:"report"`
	Transcript      []entity.TranscriptEntry `json:"transcript,omitempty"`
}

func NewSessionSummaryResponse(s *entity.SessionSummary) *SessionSummaryResponse {
	return &SessionSummaryResponse{
		Id:              s.Id.String(),
		Mode:            s.Mode,
		StartedAt:       s.StartedAt.UTC().Format(time.RFC3339),
		DurationSeconds: s.DurationSeconds,
		OverallScore:    s.OverallScore,
		PreviewText:     s.PreviewText,
		VoiceName:       s.VoiceName,
	}
}

func NewSessionResponse(s *entity.Session) *SessionResponse {
	return &SessionResponse{
		Id:              s.Id.String(),
		UserId:          s.UserId,
		Mode:            s.Mode,
		VoiceName:       s.VoiceName,
		StartedAt:       s.StartedAt.UTC().Format(time.RFC3339),
		DurationSeconds: s.DurationSeconds,
		Transcript:      s.Transcript,
		MetricsHistory:  s.MetricsHistory,
		Report:          s.Report,
	}
}

func NewSharedSessionResponse(s *entity.Session, includeTranscript bool) *SharedSessionResponse {
	res := &SharedSessionResponse{
		Id:              s.Id.String(),
		Mode:            s.Mode,
		VoiceName:       s.VoiceName,
		StartedAt:       s.StartedAt.UTC().Format(time.RFC3339),
		DurationSeconds: s.DurationSeconds,
		Report:          s.Report,
	}
	if includeTranscript {
		res.Transcript = s.Transcript
	}
	return res
}
