// Package handler owns the websocket boundary: upgrading the session socket,
// adapting the fiber connection to the orchestrator's client interface, and
// pumping inbound frames into the event loop.
package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"ai-speechcoach-be/internal/config"
	"ai-speechcoach-be/internal/pkg/logger"
	"ai-speechcoach-be/internal/repository/contract"
	"ai-speechcoach-be/internal/session"
	"ai-speechcoach-be/internal/tone"
	"ai-speechcoach-be/pkg/gemini"
)

const clientWriteWait = 10 * time.Second

type LiveHandler struct {
	gemini  *gemini.Client
	store   contract.SessionRepository
	reports session.ReportGenerator
	cfg     config.SessionConfig
	log     logger.ILogger
	liveLog logger.ILogger
}

func NewLiveHandler(
	geminiClient *gemini.Client,
	store contract.SessionRepository,
	reports session.ReportGenerator,
	cfg config.SessionConfig,
	log logger.ILogger,
	liveLog logger.ILogger,
) *LiveHandler {
	return &LiveHandler{
		gemini:  geminiClient,
		store:   store,
		reports: reports,
		cfg:     cfg,
		log:     log,
		liveLog: liveLog,
	}
}

func (h *LiveHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/ws", h.ServeWs)
}

// ServeWs upgrades the connection and runs one orchestrator for its
// lifetime. Query parameters: mode (required), userId (defaults to
// "anonymous"), originalSessionId (feedback mode only).
func (h *LiveHandler) ServeWs(c *fiber.Ctx) error {
	mode := c.Query("mode")
	userId := c.Query("userId", "anonymous")
	originalSessionId := c.Query("originalSessionId")

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		client := &wsClient{conn: conn}
		sessionId := uuid.New()

		orch := session.NewOrchestrator(session.Deps{
			Client: client,
			Dial: func(ctx context.Context, cfg gemini.LiveConfig) (session.UpstreamSession, error) {
				return h.gemini.DialLive(ctx, cfg)
			},
			Store:   h.store,
			Reports: h.reports,
			Tone: tone.NewAnalyzer(h.gemini, tone.Config{
				Model:         h.cfg.ToneModel,
				CheckInterval: h.cfg.ToneCheckInterval,
				MinWords:      h.cfg.ToneMinWords,
				TextLimit:     h.cfg.ToneTextLimit,
			}, h.liveLog, sessionId.String()),
			Log: h.liveLog,
			Cfg: h.cfg,
		}, session.Params{
			Mode:              mode,
			UserID:            userId,
			OriginalSessionID: originalSessionId,
			SessionID:         sessionId,
		})

		h.log.Info("LiveHandler", "Websocket session opened", map[string]interface{}{
			"session_id": orch.ID().String(),
			"mode":       mode,
			"user_id":    userId,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go orch.Run(ctx)

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			orch.Deliver(session.ClientMessage{
				Binary: msgType == websocket.BinaryMessage,
				Data:   data,
			})
		}

		orch.ClientGone()
		<-orch.Done()

		h.log.Info("LiveHandler", "Websocket session closed", map[string]interface{}{
			"session_id": orch.ID().String(),
		})
	})(c)
}

// wsClient adapts the fiber websocket connection to the orchestrator's
// client interface. Writes are serialized with a mutex because the
// orchestrator goroutine and close paths can overlap.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) SendJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) SendBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
