package mocks

import (
	"sync"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

// FakeSpeech is a scriptable ports.SpeechCapability. Unlike a real engine it
// keeps its handlers after Stop, so tests can simulate late platform events.
type FakeSpeech struct {
	mu          sync.Mutex
	Unsupported bool
	StartErr    error
	Starts      int
	Stops       int
	handlers    ports.RecognitionHandlers
}

func (f *FakeSpeech) Supported() bool {
	return !f.Unsupported
}

func (f *FakeSpeech) Start(h ports.RecognitionHandlers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	f.Starts++
	f.handlers = h
	return nil
}

func (f *FakeSpeech) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stops++
}

// EmitResult simulates the platform delivering a transcript.
func (f *FakeSpeech) EmitResult(text string) {
	f.mu.Lock()
	h := f.handlers
	f.mu.Unlock()
	if h.OnResult != nil {
		h.OnResult(text)
	}
}

// EmitError simulates the platform reporting an error.
func (f *FakeSpeech) EmitError(code domain.CaptureErrorCode) {
	f.mu.Lock()
	h := f.handlers
	f.mu.Unlock()
	if h.OnError != nil {
		h.OnError(code)
	}
}

func (f *FakeSpeech) Counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Starts, f.Stops
}
