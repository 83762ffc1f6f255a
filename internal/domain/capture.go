package domain

type CaptureState string

const (
	CaptureIdle      CaptureState = "idle"
	CaptureListening CaptureState = "listening"
)

// CaptureErrorCode mirrors the error codes reported by browser speech engines.
type CaptureErrorCode string

const (
	CaptureErrNone         CaptureErrorCode = ""
	CaptureErrNoSpeech     CaptureErrorCode = "no-speech"
	CaptureErrAudioCapture CaptureErrorCode = "audio-capture"
	CaptureErrNotAllowed   CaptureErrorCode = "not-allowed"
	CaptureErrNetwork      CaptureErrorCode = "network"
	CaptureErrAborted      CaptureErrorCode = "aborted"
)

// ParseCaptureErrorCode maps a platform code to a known one. Unknown codes
// are reported as aborted.
func ParseCaptureErrorCode(code string) CaptureErrorCode {
	switch c := CaptureErrorCode(code); c {
	case CaptureErrNoSpeech, CaptureErrAudioCapture, CaptureErrNotAllowed, CaptureErrNetwork, CaptureErrAborted:
		return c
	default:
		return CaptureErrAborted
	}
}

// CaptureSession is a read-only snapshot of a capture session.
type CaptureSession struct {
	ID         string           `json:"id"`
	State      CaptureState     `json:"state"`
	Transcript string           `json:"transcript"`
	LastError  CaptureErrorCode `json:"last_error,omitempty"`
	Supported  bool             `json:"supported"`
}
