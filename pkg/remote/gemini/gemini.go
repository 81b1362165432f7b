// Package gemini connects directly to the Gemini Live API. It is the
// credential-holding counterpart to the relay transport: the API key lives in
// the process environment and never crosses a wire we own.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/voicelink-go/voicelink-lite/pkg/pcm"
	"github.com/voicelink-go/voicelink-lite/pkg/session"
)

// Connector opens Live API sessions. It implements session.Connector.
type Connector struct {
	apiKey string
}

// NewConnector creates a connector using the given API key.
func NewConnector(apiKey string) *Connector {
	return &Connector{apiKey: strings.TrimSpace(apiKey)}
}

// Connect opens a live session with audio responses and transcription
// enabled in both directions.
func (c *Connector) Connect(ctx context.Context, cfg session.RemoteConfig) (session.Remote, error) {
	if c.apiKey == "" {
		return nil, errors.New("gemini api key must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model must not be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	connectCfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if voice := strings.TrimSpace(cfg.Voice); voice != "" {
		connectCfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		}
	}
	if prompt := strings.TrimSpace(cfg.SystemPrompt); prompt != "" {
		connectCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt}},
		}
	}

	live, err := client.Live.Connect(ctx, cfg.Model, connectCfg)
	if err != nil {
		return nil, fmt.Errorf("connect gemini live: %w", err)
	}

	r := &remote{
		live: live,
		msgs: make(chan session.Message, 256),
		done: make(chan struct{}),
	}
	go r.receiveLoop()
	return r, nil
}

// remote is an open Live API session. It implements session.Remote.
type remote struct {
	live *genai.Session

	msgs chan session.Message
	done chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

func (r *remote) Send(frame pcm.Frame) error {
	if r.closed.Load() {
		return errors.New("gemini session is closed")
	}
	raw, err := base64.StdEncoding.DecodeString(frame.Data)
	if err != nil {
		return fmt.Errorf("decode outbound frame: %w", err)
	}
	return r.live.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: raw, MIMEType: frame.MIMEType},
	})
}

func (r *remote) Messages() <-chan session.Message { return r.msgs }

// Err returns the terminal session error, nil for a clean close. It blocks
// until the session is done.
func (r *remote) Err() error {
	<-r.done
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

func (r *remote) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		_ = r.live.Close()
	})
	<-r.done
	return nil
}

func (r *remote) setErr(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// receiveLoop translates Live API server messages until the session
// terminates. The consumer drains msgs until it closes, so sends here may
// block on the buffer without deadlocking.
func (r *remote) receiveLoop() {
	defer close(r.done)
	defer close(r.msgs)

	for {
		serverMsg, err := r.live.Receive()
		if err != nil {
			if !r.closed.Load() {
				r.setErr(err)
			}
			return
		}
		if msg, ok := translate(serverMsg); ok {
			r.msgs <- msg
		}
		if serverMsg.GoAway != nil {
			// Server-initiated shutdown; treat as a clean close.
			return
		}
	}
}

// translate maps one Live API message onto the session message shape.
// Messages with nothing the pipeline consumes are skipped.
func translate(serverMsg *genai.LiveServerMessage) (session.Message, bool) {
	content := serverMsg.ServerContent
	if content == nil {
		return session.Message{}, false
	}

	msg := session.Message{
		TurnComplete: content.TurnComplete,
		Interrupted:  content.Interrupted,
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			msg.AudioParts = append(msg.AudioParts, base64.StdEncoding.EncodeToString(part.InlineData.Data))
		}
	}
	if content.InputTranscription != nil {
		msg.InputTranscript = content.InputTranscription.Text
	}
	if content.OutputTranscription != nil {
		msg.OutputTranscript = content.OutputTranscription.Text
	}

	if len(msg.AudioParts) == 0 && msg.InputTranscript == "" && msg.OutputTranscript == "" &&
		!msg.TurnComplete && !msg.Interrupted {
		return session.Message{}, false
	}
	return msg, true
}
