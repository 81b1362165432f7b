// Package relay implements the websocket relay transport: a self-hosted
// gateway that fronts the speech-model service behind a small JSON frame
// protocol, so clients never hold provider credentials.
package relay

import (
	"encoding/json"
	"fmt"
	"strings"
)

const ProtocolVersion1 = "1"

// DecodeError reports a malformed or unsupported frame.
type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badFrame(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_frame", Message: message, Param: param}
}

// AudioFormat describes one direction's negotiated audio shape.
type AudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

// ClientHello is the first frame on every connection. The relay answers with
// hello_ack or error and closes on anything else.
type ClientHello struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Model           string      `json:"model"`
	Voice           string      `json:"voice,omitempty"`
	SystemPrompt    string      `json:"system_prompt,omitempty"`
	AudioIn         AudioFormat `json:"audio_in"`
	AudioOut        AudioFormat `json:"audio_out"`
}

// ValidateHello checks the fields the relay cannot default.
func ValidateHello(msg ClientHello) error {
	if strings.TrimSpace(msg.ProtocolVersion) == "" {
		return badFrame("hello.protocol_version is required", "protocol_version")
	}
	if strings.TrimSpace(msg.Model) == "" {
		return badFrame("hello.model is required", "model")
	}
	for _, dir := range []struct {
		name   string
		format AudioFormat
	}{{"audio_in", msg.AudioIn}, {"audio_out", msg.AudioOut}} {
		if strings.TrimSpace(dir.format.Encoding) == "" {
			return badFrame("hello."+dir.name+".encoding is required", dir.name+".encoding")
		}
		if dir.format.SampleRateHz <= 0 {
			return badFrame("hello."+dir.name+".sample_rate_hz must be > 0", dir.name+".sample_rate_hz")
		}
		if dir.format.Channels <= 0 {
			return badFrame("hello."+dir.name+".channels must be > 0", dir.name+".channels")
		}
	}
	return nil
}

// ClientAudioFrame carries one block of base64 PCM16 capture audio.
type ClientAudioFrame struct {
	Type     string `json:"type"`
	MIMEType string `json:"mime_type,omitempty"`
	DataB64  string `json:"data_b64"`
}

// ClientControl requests a session-level operation. Supported ops:
// end_session.
type ClientControl struct {
	Type string `json:"type"`
	Op   string `json:"op"`
}

// ServerHelloAck confirms the negotiated session.
type ServerHelloAck struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	AudioIn         AudioFormat `json:"audio_in"`
	AudioOut        AudioFormat `json:"audio_out"`
}

// ServerAudioChunk carries one base64 PCM16 synthesis chunk at the output
// format.
type ServerAudioChunk struct {
	Type    string `json:"type"`
	DataB64 string `json:"data_b64"`
}

// ServerTranscriptDelta is an incremental transcription fragment for either
// role.
type ServerTranscriptDelta struct {
	Type string `json:"type"`
	Role string `json:"role"`
	Text string `json:"text"`
}

// ServerTurnComplete marks a turn boundary.
type ServerTurnComplete struct {
	Type string `json:"type"`
}

// ServerInterrupted signals that the user barged in and queued playback must
// be flushed immediately.
type ServerInterrupted struct {
	Type string `json:"type"`
}

// ServerError is a terminal error; the relay closes the connection after
// sending it.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeServerMessage decodes one relay-to-client frame into its typed form.
func DecodeServerMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badFrame("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badFrame("missing type", "type")
	}

	switch typ {
	case "hello_ack":
		var msg ServerHelloAck
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid hello_ack", "")
		}
		return msg, nil
	case "audio_chunk":
		var msg ServerAudioChunk
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid audio_chunk", "")
		}
		if strings.TrimSpace(msg.DataB64) == "" {
			return nil, badFrame("audio_chunk.data_b64 is required", "data_b64")
		}
		return msg, nil
	case "transcript_delta":
		var msg ServerTranscriptDelta
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid transcript_delta", "")
		}
		switch msg.Role {
		case "user", "model":
		default:
			return nil, badFrame("transcript_delta.role must be user or model", "role")
		}
		return msg, nil
	case "turn_complete":
		var msg ServerTurnComplete
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid turn_complete", "")
		}
		return msg, nil
	case "interrupted":
		var msg ServerInterrupted
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid interrupted", "")
		}
		return msg, nil
	case "error":
		var msg ServerError
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid error", "")
		}
		return msg, nil
	default:
		return nil, badFrame("unsupported message type", "type")
	}
}
