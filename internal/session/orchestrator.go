// Package session holds the per-connection orchestrator: the single event
// loop that owns one client socket, one upstream live connection, and all
// per-session state. Nothing in here is shared across sessions.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-speechcoach-be/internal/config"
	"ai-speechcoach-be/internal/entity"
	"ai-speechcoach-be/internal/metrics"
	"ai-speechcoach-be/internal/pkg/logger"
	"ai-speechcoach-be/internal/report"
	"ai-speechcoach-be/internal/repository/contract"
	"ai-speechcoach-be/internal/scenario"
	"ai-speechcoach-be/pkg/gemini"
)

// beginTrigger is the first client-content turn sent after upstream setup
// completes. It makes the persona open the scenario instead of waiting for
// the user to speak first.
const beginTrigger = "Hello! Let's begin the scenario."

// ClientConn is the client side of the session socket, as the orchestrator
// sees it. Implementations must be safe for use from the orchestrator
// goroutine only.
type ClientConn interface {
	SendJSON(v any) error
	SendBinary(data []byte) error
	Close() error
}

// UpstreamSession is the live model connection. *gemini.LiveSession
// implements it; tests substitute fakes.
type UpstreamSession interface {
	Events() <-chan gemini.ServerEvent
	SendText(text string, turnComplete bool) error
	SendAudio(data []byte) error
	SendVideo(data []byte) error
	Close() error
}

// DialFunc opens the upstream connection for a session.
type DialFunc func(ctx context.Context, cfg gemini.LiveConfig) (UpstreamSession, error)

// ReportGenerator produces the end-of-session report. It never fails.
type ReportGenerator interface {
	Generate(ctx context.Context, req report.Request) *entity.SessionReport
}

// ToneAnalyzer is the background tone classifier for this session.
type ToneAnalyzer interface {
	TryAnalyze(allUserText string)
	Tone() string
	Hint() string
}

// ClientMessage is one inbound frame from the client socket, delivered by
// the transport read loop.
type ClientMessage struct {
	Binary bool
	Data   []byte
}

type Deps struct {
	Client  ClientConn
	Dial    DialFunc
	Store   contract.SessionRepository
	Reports ReportGenerator
	Tone    ToneAnalyzer
	Log     logger.ILogger
	Cfg     config.SessionConfig
}

type Params struct {
	Mode              string
	UserID            string
	OriginalSessionID string
	// SessionID preassigns the session id so callers can correlate logs
	// across components. Zero means a fresh id is generated.
	SessionID uuid.UUID
}

type Orchestrator struct {
	deps   Deps
	params Params

	id        uuid.UUID
	voice     string
	startedAt time.Time

	clientCh     chan ClientMessage
	clientGone   chan struct{}
	goneOnce     sync.Once
	done         chan struct{}
	clientClosed bool

	upstream   UpstreamSession
	assembler  *Assembler
	history    []entity.MetricSnapshot
	active     bool
	suppressed bool
}

func NewOrchestrator(deps Deps, params Params) *Orchestrator {
	id := params.SessionID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Orchestrator{
		deps:       deps,
		params:     params,
		id:         id,
		clientCh:   make(chan ClientMessage, 32),
		clientGone: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// ID returns the session id assigned at construction.
func (o *Orchestrator) ID() uuid.UUID {
	return o.id
}

// Deliver hands an inbound client frame to the event loop. It drops the
// frame if the session is already finished rather than block the transport
// read loop.
func (o *Orchestrator) Deliver(msg ClientMessage) {
	select {
	case o.clientCh <- msg:
	case <-o.done:
	}
}

// ClientGone signals that the client socket read loop has exited. Safe to
// call more than once.
func (o *Orchestrator) ClientGone() {
	o.goneOnce.Do(func() { close(o.clientGone) })
}

// Done closes when the event loop has fully finished, including persistence.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Run executes the session to completion. It must be called exactly once.
func (o *Orchestrator) Run(ctx context.Context) {
	defer close(o.done)

	cfg, ok := scenario.Get(o.params.Mode)
	if !ok {
		o.sendJSON(ErrorMessage{Type: TypeError, Message: fmt.Sprintf("unknown mode %q", o.params.Mode)})
		o.closeClient()
		return
	}

	o.voice = scenario.PickVoice()
	o.startedAt = time.Now()
	o.assembler = NewAssembler(o.startedAt)

	systemPrompt := o.buildSystemPrompt(ctx, cfg)

	upstream, err := o.deps.Dial(ctx, gemini.LiveConfig{
		Model:        o.deps.Cfg.LiveModel,
		SystemPrompt: systemPrompt,
		VoiceName:    o.voice,
	})
	if err != nil {
		o.deps.Log.Error("Orchestrator", "Upstream dial failed", map[string]interface{}{
			"session_id": o.id.String(),
			"error":      err.Error(),
		})
		o.sendJSON(ErrorMessage{Type: TypeError, Message: "could not reach the speech service"})
		o.closeClient()
		return
	}
	o.upstream = upstream

	o.sendJSON(SessionStartedMessage{Type: TypeSessionStarted, SessionId: o.id.String(), Mode: o.params.Mode})
	o.deps.Log.Info("Orchestrator", "Session started", map[string]interface{}{
		"session_id": o.id.String(),
		"mode":       o.params.Mode,
		"user_id":    o.params.UserID,
		"voice":      o.voice,
	})

	upstreamCh := upstream.Events()

	var ceiling *time.Timer
	var ceilingC <-chan time.Time
	var grace *time.Timer
	var graceC <-chan time.Time
	defer func() {
		if ceiling != nil {
			ceiling.Stop()
		}
		if grace != nil {
			grace.Stop()
		}
	}()

	for {
		select {
		case ev, open := <-upstreamCh:
			if !open {
				upstreamCh = nil
				o.handleUpstreamClosed()
				continue
			}
			switch ev.Kind {
			case gemini.EventSetupComplete:
				if err := o.upstream.SendText(beginTrigger, true); err != nil {
					o.deps.Log.Warn("Orchestrator", "Begin trigger send failed", map[string]interface{}{
						"session_id": o.id.String(),
						"error":      err.Error(),
					})
				}

			case gemini.EventAudioChunk:
				if !o.suppressed {
					if err := o.deps.Client.SendBinary(ev.Audio); err != nil {
						o.deps.Log.Debug("Orchestrator", "Audio forward failed", map[string]interface{}{
							"session_id": o.id.String(),
						})
					}
				}

			case gemini.EventInputTranscription:
				if o.assembler.AddUser(ev.Text) {
					o.echoLastEntry()
					o.onUserUtterance()
				}

			case gemini.EventOutputTranscription:
				if o.assembler.AddAI(ev.Text) {
					o.echoLastEntry()
				}

			case gemini.EventInterrupted:
				// The model was cut off mid-turn; whatever it was saying is
				// partial and the queued audio is stale.
				o.assembler.FlushAI()
				o.suppressed = true
				o.sendJSON(InterruptedMessage{Type: TypeInterrupted})
				if grace != nil {
					grace.Stop()
				}
				grace = time.NewTimer(o.deps.Cfg.InterruptGrace)
				graceC = grace.C

			case gemini.EventTurnComplete:
				o.suppressed = false
				o.sendJSON(TurnCompleteMessage{Type: TypeTurnComplete})
				if !o.active {
					o.active = true
					ceiling = time.NewTimer(o.deps.Cfg.MaxDuration)
					ceilingC = ceiling.C
				}

			case gemini.EventToolCall:
				o.deps.Log.Debug("Orchestrator", "Ignoring tool call", map[string]interface{}{
					"session_id": o.id.String(),
				})
			}

		case msg := <-o.clientCh:
			if end := o.handleClientMessage(msg); end {
				o.finish(ctx, "user_request")
				return
			}

		case <-o.clientGone:
			o.clientClosed = true
			o.finish(ctx, "client_disconnected")
			return

		case <-ceilingC:
			o.finish(ctx, "time_limit")
			return

		case <-graceC:
			graceC = nil
			o.suppressed = false

		case <-ctx.Done():
			o.finish(ctx, "server_shutdown")
			return
		}
	}
}

// handleClientMessage processes one inbound frame. Malformed frames are
// dropped without ending the session. Returns true for end_session.
func (o *Orchestrator) handleClientMessage(msg ClientMessage) bool {
	if !msg.Binary {
		var ctl controlMessage
		if err := json.Unmarshal(msg.Data, &ctl); err != nil {
			o.deps.Log.Debug("Orchestrator", "Dropping malformed control frame", map[string]interface{}{
				"session_id": o.id.String(),
			})
			return false
		}
		if ctl.Type == TypeEndSession {
			return true
		}
		o.deps.Log.Debug("Orchestrator", "Dropping unknown control frame", map[string]interface{}{
			"session_id": o.id.String(),
			"type":       ctl.Type,
		})
		return false
	}

	kind, payload, err := ParseClientFrame(msg.Data)
	if err != nil {
		o.deps.Log.Debug("Orchestrator", "Dropping malformed binary frame", map[string]interface{}{
			"session_id": o.id.String(),
			"error":      err.Error(),
		})
		return false
	}
	if o.upstream == nil {
		return false
	}

	switch kind {
	case FrameAudio:
		err = o.upstream.SendAudio(payload)
	case FrameVideo:
		err = o.upstream.SendVideo(payload)
	}
	if err != nil {
		o.deps.Log.Debug("Orchestrator", "Upstream media send failed", map[string]interface{}{
			"session_id": o.id.String(),
			"error":      err.Error(),
		})
	}
	return false
}

// echoLastEntry pushes the most recently flushed transcript entry down to
// the client as its live caption feed. User echoes carry a role marker so the
// client can tell them apart from AI captions.
func (o *Orchestrator) echoLastEntry() {
	entries := o.assembler.Entries()
	if len(entries) == 0 {
		return
	}
	last := entries[len(entries)-1]
	text := last.Text
	if last.Role == entity.RoleUser {
		text = "[User]: " + text
	}
	o.sendJSON(CoachingCueMessage{Type: TypeCoachingCue, Text: text, Timestamp: int64(last.Timestamp)})
}

// onUserUtterance runs after each flushed user utterance: re-extract the
// cumulative metrics, fold in the tone analyzer's latest read, push the
// snapshot, and poke the analyzer for the next round.
func (o *Orchestrator) onUserUtterance() {
	userText := o.assembler.UserText()
	elapsed := int(time.Since(o.startedAt).Seconds())

	snap := metrics.Extract(userText, o.assembler.AIText(), elapsed)
	snap.Timestamp = time.Now().UnixMilli()
	if o.deps.Tone != nil {
		if tone := o.deps.Tone.Tone(); tone != "" {
			snap.Tone = tone
		}
		if hint := o.deps.Tone.Hint(); hint != "" {
			snap.ImprovementHint = hint
		}
	}

	o.history = append(o.history, snap)
	o.sendJSON(MetricsMessage{Type: TypeMetrics, Data: snap})

	if o.deps.Tone != nil {
		o.deps.Tone.TryAnalyze(userText)
	}
}

// handleUpstreamClosed reacts to the upstream connection dropping without an
// end request. The session stays open: the client is told once and may still
// end normally to get its report.
func (o *Orchestrator) handleUpstreamClosed() {
	before := len(o.assembler.Entries())
	o.assembler.FlushAI()
	if len(o.assembler.Entries()) > before {
		o.echoLastEntry()
	}
	o.upstream = nil
	o.deps.Log.Warn("Orchestrator", "Upstream closed unexpectedly", map[string]interface{}{
		"session_id": o.id.String(),
	})
	o.sendJSON(AiDisconnectedMessage{
		Type:    TypeAiDisconnected,
		Message: "The AI partner disconnected. You can end the session to get your report.",
	})
}

// finish runs the end-of-session sequence exactly once per Run: close the
// upstream, flush the transcript, synthesize the report, persist, deliver.
// Report delivery is not conditioned on persistence succeeding.
func (o *Orchestrator) finish(ctx context.Context, reason string) {
	if o.upstream != nil {
		_ = o.upstream.Close()
		o.upstream = nil
	}
	o.assembler.FlushAll()

	duration := int(time.Since(o.startedAt).Seconds())
	o.deps.Log.Info("Orchestrator", "Session ending", map[string]interface{}{
		"session_id": o.id.String(),
		"reason":     reason,
		"duration_s": duration,
	})

	rep := o.deps.Reports.Generate(ctx, report.Request{
		SessionID:       o.id.String(),
		Mode:            o.params.Mode,
		VoiceName:       o.voice,
		Transcript:      o.assembler.Entries(),
		Metrics:         o.history,
		DurationSeconds: duration,
	})

	session := &entity.Session{
		Id:              o.id,
		UserId:          o.params.UserID,
		Mode:            o.params.Mode,
		VoiceName:       o.voice,
		StartedAt:       o.startedAt,
		DurationSeconds: duration,
		Transcript:      o.assembler.Entries(),
		MetricsHistory:  o.history,
		Report:          rep,
	}
	if err := o.deps.Store.Save(ctx, session); err != nil {
		o.deps.Log.Error("Orchestrator", "Session persist failed", map[string]interface{}{
			"session_id": o.id.String(),
			"error":      err.Error(),
		})
	}

	o.sendJSON(ReportMessage{Type: TypeReport, Data: rep})
	o.closeClient()
}

// buildSystemPrompt returns the persona prompt, extended with the prior
// session's report and transcript when reviewing one in feedback mode.
func (o *Orchestrator) buildSystemPrompt(ctx context.Context, cfg scenario.Config) string {
	prompt := cfg.PersonaPrompt
	if o.params.Mode != scenario.ModeFeedback || o.params.OriginalSessionID == "" {
		return prompt
	}

	origId, err := uuid.Parse(o.params.OriginalSessionID)
	if err != nil {
		return prompt
	}
	orig, err := o.deps.Store.Get(ctx, origId)
	if err != nil || orig == nil || orig.UserId != o.params.UserID {
		return prompt
	}

	var b []byte
	if orig.Report != nil {
		b, _ = json.Marshal(orig.Report)
	}
	prompt += fmt.Sprintf("\n\nThe user is here to discuss their previous %s session.", orig.Mode)
	if len(b) > 0 {
		prompt += "\nTheir report was:\n" + string(b)
	}
	if len(orig.Transcript) > 0 {
		prompt += "\nThe transcript of that session:\n" + buildDialogue(orig.Transcript)
	}
	return prompt
}

func buildDialogue(entries []entity.TranscriptEntry) string {
	var out string
	for _, e := range entries {
		speaker := "User"
		if e.Role == entity.RoleAI {
			speaker = "Coach"
		}
		out += fmt.Sprintf("%s: %s\n", speaker, e.Text)
	}
	return out
}

func (o *Orchestrator) sendJSON(v any) {
	if o.clientClosed {
		return
	}
	if err := o.deps.Client.SendJSON(v); err != nil {
		o.deps.Log.Debug("Orchestrator", "Client send failed", map[string]interface{}{
			"session_id": o.id.String(),
		})
	}
}

func (o *Orchestrator) closeClient() {
	if o.clientClosed {
		return
	}
	o.clientClosed = true
	_ = o.deps.Client.Close()
}
