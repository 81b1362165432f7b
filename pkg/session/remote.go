package session

import (
	"context"

	"github.com/voicelink-go/voicelink-lite/pkg/pcm"
)

// AudioFormat describes one direction's audio shape.
type AudioFormat struct {
	Encoding     string
	SampleRateHz int
	Channels     int
}

// RemoteConfig is the fixed session-open configuration: response modality is
// audio, transcription is enabled in both directions, and the system prompt
// carries the persona. None of it is user-configurable mid-session.
type RemoteConfig struct {
	Model        string
	Voice        string
	SystemPrompt string
	AudioIn      AudioFormat
	AudioOut     AudioFormat
}

// DefaultAudioIn is the capture-side format.
func DefaultAudioIn() AudioFormat {
	return AudioFormat{Encoding: "pcm_s16le", SampleRateHz: pcm.InputRate, Channels: pcm.Channels}
}

// DefaultAudioOut is the synthesis-side format.
func DefaultAudioOut() AudioFormat {
	return AudioFormat{Encoding: "pcm_s16le", SampleRateHz: pcm.OutputRate, Channels: pcm.Channels}
}

// Message is one inbound delivery from the remote session. Fields may be
// combined in a single message.
type Message struct {
	// AudioParts are transport-encoded PCM16 payloads at the output format,
	// in arrival order.
	AudioParts []string

	// InputTranscript is an incremental fragment of the user's utterance.
	InputTranscript string

	// OutputTranscript is an incremental fragment of the model's utterance.
	OutputTranscript string

	// TurnComplete marks a turn boundary.
	TurnComplete bool

	// Interrupted marks that the user interrupted model playback.
	Interrupted bool
}

// Remote is an open streaming session with the speech-model service. The
// Messages channel closes when the session terminates, by error, remote
// close, or an explicit Close; Err reports the terminal error afterwards
// (nil for a clean close).
type Remote interface {
	Send(frame pcm.Frame) error
	Messages() <-chan Message
	Err() error
	Close() error
}

// Connector opens remote sessions. Implementations: the Gemini Live API and
// the websocket relay; tests substitute a scripted fake.
type Connector interface {
	Connect(ctx context.Context, cfg RemoteConfig) (Remote, error)
}

// Source delivers capture blocks of normalized float samples at the input
// rate, in time order. Start's error is the microphone-permission /
// device-setup failure path.
type Source interface {
	Start(onBlock func(block []float32)) error
	Stop() error
}
