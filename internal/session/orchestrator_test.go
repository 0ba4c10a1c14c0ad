package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-speechcoach-be/internal/config"
	"ai-speechcoach-be/internal/entity"
	"ai-speechcoach-be/internal/pkg/logger"
	"ai-speechcoach-be/internal/report"
	"ai-speechcoach-be/internal/repository/memory"
	"ai-speechcoach-be/internal/scenario"
	"ai-speechcoach-be/pkg/gemini"
)

type recordedMessage struct {
	Type string
	Raw  []byte
}

type fakeClient struct {
	mu       sync.Mutex
	messages []recordedMessage
	binary   [][]byte
	closed   bool
}

func (c *fakeClient) SendJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var envelope struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(raw, &envelope)

	c.mu.Lock()
	c.messages = append(c.messages, recordedMessage{Type: envelope.Type, Raw: raw})
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) SendBinary(data []byte) error {
	cp := append([]byte(nil), data...)
	c.mu.Lock()
	c.binary = append(c.binary, cp)
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) countType(t string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.messages {
		if m.Type == t {
			n++
		}
	}
	return n
}

func (c *fakeClient) typesInOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.messages))
	for i, m := range c.messages {
		types[i] = m.Type
	}
	return types
}

func (c *fakeClient) rawOfType(t string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, m := range c.messages {
		if m.Type == t {
			out = append(out, m.Raw)
		}
	}
	return out
}

func (c *fakeClient) binaryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.binary)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeUpstream struct {
	events    chan gemini.ServerEvent
	closeOnce sync.Once

	mu    sync.Mutex
	texts []string
	audio [][]byte
	video [][]byte
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{events: make(chan gemini.ServerEvent, 16)}
}

func (u *fakeUpstream) Events() <-chan gemini.ServerEvent { return u.events }

func (u *fakeUpstream) SendText(text string, _ bool) error {
	u.mu.Lock()
	u.texts = append(u.texts, text)
	u.mu.Unlock()
	return nil
}

func (u *fakeUpstream) SendAudio(data []byte) error {
	u.mu.Lock()
	u.audio = append(u.audio, append([]byte(nil), data...))
	u.mu.Unlock()
	return nil
}

func (u *fakeUpstream) SendVideo(data []byte) error {
	u.mu.Lock()
	u.video = append(u.video, append([]byte(nil), data...))
	u.mu.Unlock()
	return nil
}

func (u *fakeUpstream) Close() error {
	u.closeOnce.Do(func() { close(u.events) })
	return nil
}

func (u *fakeUpstream) sentTexts() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.texts...)
}

func (u *fakeUpstream) audioCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.audio)
}

type fakeReports struct{}

func (fakeReports) Generate(_ context.Context, req report.Request) *entity.SessionReport {
	return &entity.SessionReport{
		SessionId:    req.SessionID,
		Mode:         req.Mode,
		OverallScore: 7,
	}
}

type failingStore struct {
	saves int
	mu    sync.Mutex
}

func (s *failingStore) Save(context.Context, *entity.Session) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return errors.New("database is down")
}

func (s *failingStore) Get(context.Context, uuid.UUID) (*entity.Session, error) {
	return nil, nil
}

func (s *failingStore) ListByUser(context.Context, string) ([]*entity.SessionSummary, error) {
	return nil, nil
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		LiveModel:      "live-model",
		ReportModel:    "report-model",
		MaxDuration:    time.Minute,
		InterruptGrace: 25 * time.Millisecond,
		ReportTimeout:  time.Second,
	}
}

type fixture struct {
	client   *fakeClient
	upstream *fakeUpstream
	deps     Deps
	dials    int
	mu       sync.Mutex
}

func newFixture() *fixture {
	f := &fixture{
		client:   &fakeClient{},
		upstream: newFakeUpstream(),
	}
	f.deps = Deps{
		Client: f.client,
		Dial: func(context.Context, gemini.LiveConfig) (UpstreamSession, error) {
			f.mu.Lock()
			f.dials++
			f.mu.Unlock()
			return f.upstream, nil
		},
		Store:   memory.NewSessionRepository(),
		Reports: fakeReports{},
		Log:     logger.Nop{},
		Cfg:     testSessionConfig(),
	}
	return f
}

func (f *fixture) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func endSessionMsg() ClientMessage {
	return ClientMessage{Data: []byte(`{"type":"end_session"}`)}
}

func waitDone(t *testing.T, o *Orchestrator) {
	t.Helper()
	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not finish")
	}
}

func TestInvalidModeRejectedWithoutDialing(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: "speed_dating", UserID: "u-1"})

	o.Run(context.Background())

	assert.Equal(t, 0, f.dialCount())
	assert.Equal(t, 1, f.client.countType(TypeError))
	assert.True(t, f.client.isClosed())
}

func TestDialFailureClosesSession(t *testing.T) {
	f := newFixture()
	f.deps.Dial = func(context.Context, gemini.LiveConfig) (UpstreamSession, error) {
		return nil, errors.New("connection refused")
	}
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModePitchPerfect, UserID: "u-1"})

	o.Run(context.Background())

	assert.Equal(t, 1, f.client.countType(TypeError))
	assert.True(t, f.client.isClosed())
}

func TestHappyPathEndToEnd(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModePitchPerfect, UserID: "u-1"})
	go o.Run(context.Background())

	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventSetupComplete}
	assert.Eventually(t, func() bool {
		texts := f.upstream.sentTexts()
		return len(texts) == 1 && texts[0] == beginTrigger
	}, time.Second, 5*time.Millisecond)

	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventAudioChunk, Audio: []byte{1, 2}}
	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventOutputTranscription, Text: "Pitch me."}
	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventTurnComplete}
	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventInputTranscription, Text: "We sell satellite imagery to farmers."}

	assert.Eventually(t, func() bool {
		return f.client.countType(TypeMetrics) == 1 && f.client.binaryCount() == 1
	}, time.Second, 5*time.Millisecond)

	o.Deliver(endSessionMsg())
	waitDone(t, o)

	assert.Equal(t, 1, f.client.countType(TypeSessionStarted))
	assert.Equal(t, 1, f.client.countType(TypeTurnComplete))
	assert.Equal(t, 2, f.client.countType(TypeCoachingCue))
	assert.Equal(t, 1, f.client.countType(TypeReport))
	assert.True(t, f.client.isClosed())

	saved, err := f.deps.Store.Get(context.Background(), o.ID())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "u-1", saved.UserId)
	require.NotNil(t, saved.Report)
	assert.Equal(t, 7, saved.Report.OverallScore)
	assert.NotEmpty(t, saved.Transcript)
}

func TestCoachingCueEchoesFlushedEntries(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModePitchPerfect, UserID: "u-1"})
	go o.Run(context.Background())

	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventOutputTranscription, Text: "Pitch me."}
	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventInputTranscription, Text: "We sell satellite imagery to farmers."}

	assert.Eventually(t, func() bool {
		return f.client.countType(TypeCoachingCue) == 2
	}, time.Second, 5*time.Millisecond)

	o.Deliver(endSessionMsg())
	waitDone(t, o)

	cues := f.client.rawOfType(TypeCoachingCue)
	require.Len(t, cues, 2)

	var aiCue, userCue CoachingCueMessage
	require.NoError(t, json.Unmarshal(cues[0], &aiCue))
	require.NoError(t, json.Unmarshal(cues[1], &userCue))

	// AI captions come through bare; user echoes carry the role marker.
	assert.Equal(t, "Pitch me.", aiCue.Text)
	assert.Equal(t, "[User]: We sell satellite imagery to farmers.", userCue.Text)

	// Timestamps are seconds since session start, not wall-clock millis.
	assert.LessOrEqual(t, aiCue.Timestamp, int64(5))
	assert.LessOrEqual(t, userCue.Timestamp, int64(5))
}

func TestClientMediaForwardedUpstream(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModeVeritalk, UserID: "u-1"})
	go o.Run(context.Background())

	frame := append([]byte(`{"type":"audio"}`+"\n"), 0xAA, 0xBB)
	o.Deliver(ClientMessage{Binary: true, Data: frame})

	assert.Eventually(t, func() bool {
		return f.upstream.audioCount() == 1
	}, time.Second, 5*time.Millisecond)

	o.Deliver(endSessionMsg())
	waitDone(t, o)
}

func TestMalformedFramesDoNotEndSession(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModeImpromptu, UserID: "u-1"})
	go o.Run(context.Background())

	o.Deliver(ClientMessage{Data: []byte("{{{{")})
	o.Deliver(ClientMessage{Binary: true, Data: []byte("no header here")})
	o.Deliver(ClientMessage{Data: []byte(`{"type":"do_a_flip"}`)})

	// The session is still alive and ends normally.
	o.Deliver(endSessionMsg())
	waitDone(t, o)

	assert.Equal(t, 0, f.client.countType(TypeError))
	assert.Equal(t, 1, f.client.countType(TypeReport))
}

func TestUpstreamDropNotifiesOnceAndKeepsSessionOpen(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModeEmpathyTrainer, UserID: "u-1"})
	go o.Run(context.Background())

	_ = f.upstream.Close()

	assert.Eventually(t, func() bool {
		return f.client.countType(TypeAiDisconnected) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, f.client.isClosed())

	// Media frames after the drop are discarded, not an error.
	o.Deliver(ClientMessage{Binary: true, Data: append([]byte(`{"type":"audio"}`+"\n"), 0x01)})

	o.Deliver(endSessionMsg())
	waitDone(t, o)

	assert.Equal(t, 1, f.client.countType(TypeAiDisconnected))
	assert.Equal(t, 1, f.client.countType(TypeReport))
}

func TestInterruptedSuppressesAudioUntilGrace(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModeVeritalk, UserID: "u-1"})
	go o.Run(context.Background())

	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventInterrupted}
	assert.Eventually(t, func() bool {
		return f.client.countType(TypeInterrupted) == 1
	}, time.Second, 5*time.Millisecond)

	// Stale audio arriving inside the grace window is dropped.
	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventAudioChunk, Audio: []byte{1}}
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 0, f.client.binaryCount())

	// After the grace window a fresh model turn flows again.
	time.Sleep(2 * testSessionConfig().InterruptGrace)
	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventAudioChunk, Audio: []byte{2}}
	assert.Eventually(t, func() bool {
		return f.client.binaryCount() == 1
	}, time.Second, 5*time.Millisecond)

	o.Deliver(endSessionMsg())
	waitDone(t, o)
}

func TestDurationCeilingEndsSession(t *testing.T) {
	f := newFixture()
	f.deps.Cfg.MaxDuration = 30 * time.Millisecond
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModePitchPerfect, UserID: "u-1"})
	go o.Run(context.Background())

	// The ceiling arms on the first completed model turn.
	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventTurnComplete}

	waitDone(t, o)
	assert.Equal(t, 1, f.client.countType(TypeReport))
}

func TestClientDisconnectStillPersists(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModePitchPerfect, UserID: "u-1"})
	go o.Run(context.Background())

	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventInputTranscription, Text: "A complete thought."}
	assert.Eventually(t, func() bool {
		return f.client.countType(TypeMetrics) == 1
	}, time.Second, 5*time.Millisecond)

	o.ClientGone()
	o.ClientGone() // safe to repeat
	waitDone(t, o)

	saved, err := f.deps.Store.Get(context.Background(), o.ID())
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.NotNil(t, saved.Report)
}

func TestPersistenceFailureStillDeliversReport(t *testing.T) {
	f := newFixture()
	store := &failingStore{}
	f.deps.Store = store
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModePitchPerfect, UserID: "u-1"})
	go o.Run(context.Background())

	o.Deliver(endSessionMsg())
	waitDone(t, o)

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, f.client.countType(TypeReport))
}

func TestEndSessionIsIdempotent(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModePitchPerfect, UserID: "u-1"})
	go o.Run(context.Background())

	o.Deliver(endSessionMsg())
	o.Deliver(endSessionMsg())
	o.Deliver(endSessionMsg())
	waitDone(t, o)

	assert.Equal(t, 1, f.client.countType(TypeReport))
}

func TestFeedbackModeLoadsOriginalSession(t *testing.T) {
	f := newFixture()
	orig := &entity.Session{
		Id:        uuid.New(),
		UserId:    "u-1",
		Mode:      scenario.ModePitchPerfect,
		StartedAt: time.Now(),
		Transcript: []entity.TranscriptEntry{
			{Role: entity.RoleUser, Text: "We sell rockets.", Timestamp: 3},
		},
		Report: &entity.SessionReport{OverallScore: 4},
	}
	require.NoError(t, f.deps.Store.Save(context.Background(), orig))

	var dialed gemini.LiveConfig
	f.deps.Dial = func(_ context.Context, cfg gemini.LiveConfig) (UpstreamSession, error) {
		dialed = cfg
		return f.upstream, nil
	}

	o := NewOrchestrator(f.deps, Params{
		Mode:              scenario.ModeFeedback,
		UserID:            "u-1",
		OriginalSessionID: orig.Id.String(),
	})
	go o.Run(context.Background())

	assert.Eventually(t, func() bool {
		return f.client.countType(TypeSessionStarted) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, dialed.SystemPrompt, "pitch_perfect")
	assert.Contains(t, dialed.SystemPrompt, "We sell rockets.")

	o.Deliver(endSessionMsg())
	waitDone(t, o)
}

func TestFeedbackModeIgnoresForeignSession(t *testing.T) {
	f := newFixture()
	orig := &entity.Session{
		Id:        uuid.New(),
		UserId:    "someone-else",
		Mode:      scenario.ModePitchPerfect,
		StartedAt: time.Now(),
		Transcript: []entity.TranscriptEntry{
			{Role: entity.RoleUser, Text: "Secret pitch.", Timestamp: 3},
		},
	}
	require.NoError(t, f.deps.Store.Save(context.Background(), orig))

	var dialed gemini.LiveConfig
	f.deps.Dial = func(_ context.Context, cfg gemini.LiveConfig) (UpstreamSession, error) {
		dialed = cfg
		return f.upstream, nil
	}

	o := NewOrchestrator(f.deps, Params{
		Mode:              scenario.ModeFeedback,
		UserID:            "u-1",
		OriginalSessionID: orig.Id.String(),
	})
	go o.Run(context.Background())

	assert.Eventually(t, func() bool {
		return f.client.countType(TypeSessionStarted) == 1
	}, time.Second, 5*time.Millisecond)
	assert.NotContains(t, dialed.SystemPrompt, "Secret pitch.")

	o.Deliver(endSessionMsg())
	waitDone(t, o)
}

func TestMessageOrderingOnHappyPath(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(f.deps, Params{Mode: scenario.ModePitchPerfect, UserID: "u-1"})
	go o.Run(context.Background())

	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventSetupComplete}
	f.upstream.events <- gemini.ServerEvent{Kind: gemini.EventTurnComplete}
	assert.Eventually(t, func() bool {
		return f.client.countType(TypeTurnComplete) == 1
	}, time.Second, 5*time.Millisecond)

	o.Deliver(endSessionMsg())
	waitDone(t, o)

	types := f.client.typesInOrder()
	require.NotEmpty(t, types)
	assert.Equal(t, TypeSessionStarted, types[0])
	assert.Equal(t, TypeReport, types[len(types)-1])
}
