package websocket

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/service/capture"
	"github.com/seu-repo/vitrina-voz/internal/service/storefront"
)

// Inbound message types.
const (
	MsgCaptureStart          = "capture.start"
	MsgCaptureStop           = "capture.stop"
	MsgText                  = "text"
	MsgRecognizerResult      = "recognizer.result"
	MsgRecognizerError       = "recognizer.error"
	MsgRecognizerUnsupported = "recognizer.unsupported"
)

type inbound struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
	Text       string `json:"text,omitempty"`
}

type VoiceStreamHandler struct {
	manager  *storefront.Manager
	hub      *Hub
	language string
	logger   *zap.Logger
}

func NewVoiceStreamHandler(manager *storefront.Manager, hub *Hub, language string, logger *zap.Logger) *VoiceStreamHandler {
	return &VoiceStreamHandler{
		manager:  manager,
		hub:      hub,
		language: language,
		logger:   logger,
	}
}

// HandleVoiceStream is mounted through websocket.New.
func (h *VoiceStreamHandler) HandleVoiceStream(c *websocket.Conn) {
	clientID, _ := c.Locals("client_id").(string)
	if clientID == "" {
		clientID = uuid.New().String()
	}
	h.Serve(context.Background(), clientID, c)
}

// Serve runs one socket until the peer goes away. The capture session lives
// exactly as long as the socket.
func (h *VoiceStreamHandler) Serve(ctx context.Context, clientID string, conn Conn) {
	log := h.logger.With(zap.String("client_id", clientID))

	client, release, err := h.manager.Attach(ctx, clientID)
	if err != nil {
		log.Warn("Rejecting voice stream", zap.Error(err))
		data, _ := json.Marshal(Frame{Kind: "error", Error: err.Error()})
		conn.WriteMessage(websocket.TextMessage, data)
		conn.Close()
		return
	}

	defer release()

	ws := h.hub.Register(clientID, conn)
	defer h.hub.Unregister(ws)

	recognizer := NewRemoteRecognizer(ws, h.language)
	session := capture.NewSession(recognizer, capture.Handlers{
		OnResult: func(transcript string) {
			client.Assistant.Submit(ctx, transcript)
		},
		OnError: func(code domain.CaptureErrorCode) {
			client.Events.Emit(ctx, domain.Event{
				Type: domain.EventSignal,
				Signal: &domain.Signal{
					Level:   domain.SignalError,
					Code:    domain.CodeCaptureError,
					Message: capture.ErrorMessage(code),
				},
			})
		},
		OnState: func(snap domain.CaptureSession) {
			client.Events.Emit(ctx, domain.Event{Type: domain.EventCapture, Capture: &snap})
		},
	}, log)
	defer session.Close()

	view := client.Cart.Snapshot().View()
	snap := session.Snapshot()
	ws.Send(Frame{Kind: "event", Event: &domain.Event{ClientID: clientID, Type: domain.EventCart, Cart: &view}})
	ws.Send(Frame{Kind: "event", Event: &domain.Event{ClientID: clientID, Type: domain.EventCapture, Capture: &snap}})

	log.Info("Voice stream connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug("Voice stream closed", zap.Error(err))
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			ws.Send(Frame{Kind: "error", Error: "malformed message"})
			continue
		}

		switch msg.Type {
		case MsgCaptureStart:
			if !session.Supported() {
				snap := session.Snapshot()
				ws.Send(Frame{Kind: "event", Event: &domain.Event{ClientID: clientID, Type: domain.EventCapture, Capture: &snap}})
				continue
			}
			session.Start()
		case MsgCaptureStop:
			session.Stop()
		case MsgText:
			client.Assistant.Submit(ctx, msg.Text)
		case MsgRecognizerResult:
			recognizer.DeliverResult(msg.Transcript)
		case MsgRecognizerError:
			recognizer.DeliverError(domain.ParseCaptureErrorCode(msg.Error))
		case MsgRecognizerUnsupported:
			recognizer.MarkUnsupported()
			session.Stop()
		default:
			ws.Send(Frame{Kind: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

// SetupVoiceRoutes mounts the voice socket at /ws/voice.
func SetupVoiceRoutes(app *fiber.App, handler *VoiceStreamHandler) {
	app.Use("/ws/voice", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/voice", websocket.New(handler.HandleVoiceStream))
}
