package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	liveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	audioInputMimeType = "audio/pcm;rate=16000"
	videoInputMimeType = "image/jpeg"

	liveWriteTimeout = 10 * time.Second
	// Events channel buffer. Audio chunks arrive in bursts; the orchestrator
	// drains them immediately, the buffer just absorbs scheduler jitter.
	liveEventBuffer = 64
)

// LiveConfig describes one live speech session to open upstream.
type LiveConfig struct {
	Model        string
	SystemPrompt string
	VoiceName    string
}

// LiveSession is one open duplex connection to the speech model. Events()
// yields decoded upstream events in arrival order; the channel is closed
// when the upstream connection closes for any reason.
type LiveSession struct {
	conn   *websocket.Conn
	events chan ServerEvent
	quit   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// DialLive opens the BidiGenerateContent socket, sends the setup message and
// starts the reader. The first event on Events() is EventSetupComplete once
// the upstream handshake finishes.
func (c *Client) DialLive(ctx context.Context, cfg LiveConfig) (*LiveSession, error) {
	u := fmt.Sprintf("%s?key=%s", liveEndpoint, c.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("live dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("live dial failed: %w", err)
	}

	setup := setupMessage{
		Setup: setupPayload{
			Model: "models/" + cfg.Model,
			GenerationConfig: &generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: &voiceConfig{
						PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.VoiceName},
					},
				},
			},
			SystemInstruction:        &Content{Parts: []Part{{Text: cfg.SystemPrompt}}},
			InputAudioTranscription:  &struct{}{},
			OutputAudioTranscription: &struct{}{},
		},
	}
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("live setup write failed: %w", err)
	}

	s := &LiveSession{
		conn:   conn,
		events: make(chan ServerEvent, liveEventBuffer),
		quit:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events returns the upstream event stream. Closed on connection close.
func (s *LiveSession) Events() <-chan ServerEvent {
	return s.events
}

func (s *LiveSession) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.SetupComplete != nil {
			if !s.emit(ServerEvent{Kind: EventSetupComplete}) {
				return
			}
			continue
		}
		if msg.ToolCall != nil {
			if !s.emit(ServerEvent{Kind: EventToolCall}) {
				return
			}
			continue
		}

		sc := msg.ServerContent
		if sc == nil {
			continue
		}

		// One server message can carry several event kinds at once; emit
		// them in the order the protocol defines them.
		if sc.Interrupted {
			if !s.emit(ServerEvent{Kind: EventInterrupted}) {
				return
			}
			continue
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			if !s.emit(ServerEvent{Kind: EventInputTranscription, Text: sc.InputTranscription.Text}) {
				return
			}
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			if !s.emit(ServerEvent{Kind: EventOutputTranscription, Text: sc.OutputTranscription.Text}) {
				return
			}
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					continue
				}
				if !s.emit(ServerEvent{Kind: EventAudioChunk, Audio: audio}) {
					return
				}
			}
		}
		if sc.TurnComplete {
			if !s.emit(ServerEvent{Kind: EventTurnComplete}) {
				return
			}
		}
	}
}

// emit delivers one event unless the session has been closed. A consumer that
// stops draining after Close must not park the reader on a full buffer
// forever.
func (s *LiveSession) emit(ev ServerEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.quit:
		return false
	}
}

func (s *LiveSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return s.conn.WriteJSON(v)
}

// SendText submits a text turn, optionally marking the turn complete so the
// model responds. Used for the synthetic begin trigger.
func (s *LiveSession) SendText(text string, turnComplete bool) error {
	return s.writeJSON(clientContentMessage{
		ClientContent: clientContent{
			Turns:        []Content{{Role: "user", Parts: []Part{{Text: text}}}},
			TurnComplete: turnComplete,
		},
	})
}

// SendAudio forwards one raw PCM chunk as realtime input.
func (s *LiveSession) SendAudio(data []byte) error {
	return s.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{
			Audio: &Blob{MimeType: audioInputMimeType, Data: base64.StdEncoding.EncodeToString(data)},
		},
	})
}

// SendVideo forwards one JPEG frame as realtime input.
func (s *LiveSession) SendVideo(data []byte) error {
	return s.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{
			Video: &Blob{MimeType: videoInputMimeType, Data: base64.StdEncoding.EncodeToString(data)},
		},
	})
}

// Close shuts the upstream connection down. Safe to call more than once;
// both normal termination and unexpected-drop handling may attempt it.
func (s *LiveSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
