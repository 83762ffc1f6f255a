package websocket

import (
	"sync"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

const (
	CommandRecognizerStart = "recognizer.start"
	CommandRecognizerStop  = "recognizer.stop"
)

// RemoteRecognizer is a speech capability whose engine lives in the browser
// on the other end of the socket. Start and Stop become commands; results
// and errors arrive as inbound messages.
type RemoteRecognizer struct {
	client   *Client
	language string

	mu          sync.Mutex
	unsupported bool
	handlers    ports.RecognitionHandlers
}

func NewRemoteRecognizer(client *Client, language string) *RemoteRecognizer {
	return &RemoteRecognizer{client: client, language: language}
}

func (r *RemoteRecognizer) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.unsupported
}

func (r *RemoteRecognizer) Start(handlers ports.RecognitionHandlers) error {
	r.mu.Lock()
	r.handlers = handlers
	r.mu.Unlock()
	return r.client.Send(Frame{Kind: "command", Command: CommandRecognizerStart, Language: r.language})
}

func (r *RemoteRecognizer) Stop() {
	r.client.Send(Frame{Kind: "command", Command: CommandRecognizerStop})
}

// MarkUnsupported records that the browser has no speech engine.
func (r *RemoteRecognizer) MarkUnsupported() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsupported = true
}

func (r *RemoteRecognizer) DeliverResult(transcript string) {
	r.mu.Lock()
	h := r.handlers
	r.mu.Unlock()
	if h.OnResult != nil {
		h.OnResult(transcript)
	}
}

func (r *RemoteRecognizer) DeliverError(code domain.CaptureErrorCode) {
	r.mu.Lock()
	h := r.handlers
	r.mu.Unlock()
	if h.OnError != nil {
		h.OnError(code)
	}
}

var _ ports.SpeechCapability = (*RemoteRecognizer)(nil)
