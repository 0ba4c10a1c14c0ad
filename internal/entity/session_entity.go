package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// TranscriptEntry is one flushed utterance. Timestamp is elapsed seconds
// since session start, not wall clock.
type TranscriptEntry struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp int    `json:"timestamp"`
}

// MetricSnapshot is a cumulative re-evaluation of all user speech so far,
// not a delta. The JSON shape is the wire shape pushed to the client and
// the shape persisted inside the session record.
type MetricSnapshot struct {
	FillerWords     map[string]int `json:"filler_words"`
	WordsPerMinute  int            `json:"words_per_minute"`
	Tone            string         `json:"tone"`
	KeyPhrases      []string       `json:"key_phrases"`
	ImprovementHint string         `json:"improvement_hint"`
	Timestamp       int64          `json:"timestamp"`
	TalkRatio       float64        `json:"talk_ratio"`
	ClarityScore    float64        `json:"clarity_score"`
}

type ReportCategory struct {
	Score    int    `json:"score" validate:"min=1,max=10"`
	Feedback string `json:"feedback" validate:"required"`
}

type ReportMetrics struct {
	TotalFillerWords          int     `json:"total_filler_words"`
	AvgWordsPerMinute         int     `json:"avg_words_per_minute"`
	DominantTone              string  `json:"dominant_tone"`
	InterruptionRecoveryAvgMs int     `json:"interruption_recovery_avg_ms"`
	AvgTalkRatio              float64 `json:"avg_talk_ratio"`
	AvgClarityScore           float64 `json:"avg_clarity_score"`
}

type KeyMoment struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type" validate:"oneof=strength weakness"`
	Note      string `json:"note"`
}

type SocialShareTexts struct {
	PerformanceCardSummary string `json:"performance_card_summary" validate:"required"`
	LinkedinTemplate       string `json:"linkedin_template" validate:"required"`
	TwitterTemplate        string `json:"twitter_template" validate:"required"`
	FacebookTemplate       string `json:"facebook_template" validate:"required"`
}

// SessionReport is the terminal artifact attached to a session exactly once.
type SessionReport struct {
	SessionId        string                    `json:"session_id"`
	Mode             string                    `json:"mode"`
	DurationSeconds  int                       `json:"duration_seconds"`
	OverallScore     int                       `json:"overall_score" validate:"min=1,max=10"`
	Categories       map[string]ReportCategory `json:"categories"`
	Metrics          ReportMetrics             `json:"metrics"`
	KeyMoments       []KeyMoment               `json:"key_moments"`
	ImprovementTips  []string                  `json:"improvement_tips"`
	SocialShareTexts SocialShareTexts          `json:"social_share_texts"`
	Extra            map[string]any            `json:"extra"`
	DisplayMetrics   []string                  `json:"display_metrics"`
	VoiceName        string                    `json:"voice_name"`
}

// Session is one conversational encounter. It is owned exclusively by its
// orchestrator for the connection lifetime and persisted once at the end.
type Session struct {
	Id              uuid.UUID
	UserId          string
	Mode            string
	VoiceName       string
	StartedAt       time.Time
	DurationSeconds int
	Transcript      []TranscriptEntry
	MetricsHistory  []MetricSnapshot
	Report          *SessionReport
}

// SessionSummary is the listing projection: no transcript, no full report.
type SessionSummary struct {
	Id              uuid.UUID
	Mode            string
	StartedAt       time.Time
	DurationSeconds int
	OverallScore    int
	PreviewText     string
	VoiceName       string
}
