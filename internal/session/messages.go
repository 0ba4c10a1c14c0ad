package session

import "ai-speechcoach-be/internal/entity"

// Server to client message types. Every JSON frame pushed on the session
// socket is one of these envelopes.
const (
	TypeSessionStarted = "session_started"
	TypeInterrupted    = "interrupted"
	TypeMetrics        = "metrics"
	TypeCoachingCue    = "coaching_cue"
	TypeTurnComplete   = "turn_complete"
	TypeReport         = "report"
	TypeError          = "error"
	TypeAiDisconnected = "ai_disconnected"
)

// Client to server control message types. Audio and video arrive as binary
// frames, not as these envelopes.
const (
	TypeEndSession = "end_session"
)

type SessionStartedMessage struct {
	Type      string `json:"type"`
	SessionId string `json:"sessionId"`
	Mode      string `json:"mode"`
}

type InterruptedMessage struct {
	Type string `json:"type"`
}

type MetricsMessage struct {
	Type string                `json:"type"`
	Data entity.MetricSnapshot `json:"data"`
}

// CoachingCueMessage echoes one flushed transcript entry as a live caption.
// Timestamp is seconds since session start; user echoes are prefixed with
// "[User]: " so the client can distinguish them from AI captions.
type CoachingCueMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type TurnCompleteMessage struct {
	Type string `json:"type"`
}

type ReportMessage struct {
	Type string                `json:"type"`
	Data *entity.SessionReport `json:"data"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type AiDisconnectedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type controlMessage struct {
	Type string `json:"type"`
}
