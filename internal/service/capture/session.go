package capture

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/observability/telemetry"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

// Handlers receive the outcome of a capture. They run on the goroutine that
// delivered the platform event, outside the session lock.
type Handlers struct {
	OnResult func(transcript string)
	OnError  func(code domain.CaptureErrorCode)
	// OnState is told about every state transition; optional.
	OnState func(snapshot domain.CaptureSession)
}

// Session wraps a speech capability as an idle/listening state machine.
//
// Each Start opens a new generation. Platform callbacks carry the generation
// they were issued for and are dropped unless it is still the live one, so
// nothing fires after Stop or Close.
type Session struct {
	id         string
	capability ports.SpeechCapability
	handlers   Handlers
	log        *zap.Logger

	mu         sync.Mutex
	state      domain.CaptureState
	transcript string
	lastErr    domain.CaptureErrorCode
	generation uint64
	closed     bool
}

// NewSession builds a session. A nil capability is treated as unsupported.
func NewSession(capability ports.SpeechCapability, handlers Handlers, log *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:         id,
		capability: capability,
		handlers:   handlers,
		log:        log.With(zap.String("capture_session", id)),
		state:      domain.CaptureIdle,
	}
}

func (s *Session) Supported() bool {
	return s.capability != nil && s.capability.Supported()
}

// Start begins listening. It is a no-op while already listening, after Close,
// or on platforms without speech support.
func (s *Session) Start() error {
	if !s.Supported() {
		return nil
	}

	s.mu.Lock()
	if s.closed || s.state == domain.CaptureListening {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	s.state = domain.CaptureListening
	s.lastErr = domain.CaptureErrNone
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyState(snap)
	err := s.capability.Start(ports.RecognitionHandlers{
		OnResult: func(text string) { s.deliverResult(gen, text) },
		OnError:  func(code domain.CaptureErrorCode) { s.deliverError(gen, code) },
	})
	if err != nil {
		s.log.Warn("Speech capability failed to start", zap.Error(err))
		s.deliverError(gen, domain.CaptureErrAudioCapture)
		return err
	}

	telemetry.CaptureEventsTotal.WithLabelValues("start").Inc()
	return nil
}

// Stop ends the current capture without emitting anything.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != domain.CaptureListening {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.state = domain.CaptureIdle
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.capability.Stop()
	telemetry.CaptureEventsTotal.WithLabelValues("stop").Inc()
	s.notifyState(snap)
}

// Close tears the session down for good. In-flight captures are cancelled and
// no handler runs afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	wasListening := s.state == domain.CaptureListening
	s.generation++
	s.state = domain.CaptureIdle
	s.mu.Unlock()

	if wasListening {
		s.capability.Stop()
	}
	telemetry.CaptureEventsTotal.WithLabelValues("close").Inc()
}

func (s *Session) Snapshot() domain.CaptureSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.CaptureSession {
	return domain.CaptureSession{
		ID:         s.id,
		State:      s.state,
		Transcript: s.transcript,
		LastError:  s.lastErr,
		Supported:  s.Supported(),
	}
}

// settle moves a live generation back to idle. It reports false for stale
// or torn-down callbacks.
func (s *Session) settle(gen uint64, apply func()) (domain.CaptureSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation || s.state != domain.CaptureListening {
		return domain.CaptureSession{}, false
	}
	apply()
	s.state = domain.CaptureIdle
	return s.snapshotLocked(), true
}

func (s *Session) deliverResult(gen uint64, text string) {
	snap, ok := s.settle(gen, func() { s.transcript = text })
	if !ok {
		s.log.Debug("Dropping stale speech result")
		return
	}
	telemetry.CaptureEventsTotal.WithLabelValues("result").Inc()
	s.notifyState(snap)
	if s.handlers.OnResult != nil {
		s.handlers.OnResult(text)
	}
}

func (s *Session) deliverError(gen uint64, code domain.CaptureErrorCode) {
	snap, ok := s.settle(gen, func() { s.lastErr = code })
	if !ok {
		s.log.Debug("Dropping stale speech error", zap.String("code", string(code)))
		return
	}
	telemetry.CaptureEventsTotal.WithLabelValues("error").Inc()
	s.notifyState(snap)
	if s.handlers.OnError != nil {
		s.handlers.OnError(code)
	}
}

func (s *Session) notifyState(snap domain.CaptureSession) {
	if s.handlers.OnState != nil {
		s.handlers.OnState(snap)
	}
}

// ErrorMessage is the user-facing text for a capture error code.
func ErrorMessage(code domain.CaptureErrorCode) string {
	switch code {
	case domain.CaptureErrNoSpeech:
		return "No escuché nada, intenta de nuevo"
	case domain.CaptureErrAudioCapture:
		return "No se pudo acceder al micrófono"
	case domain.CaptureErrNotAllowed:
		return "Permiso de micrófono denegado"
	case domain.CaptureErrNetwork:
		return "Error de red en el reconocimiento de voz"
	default:
		return "Reconocimiento de voz cancelado"
	}
}
