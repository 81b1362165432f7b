// Package pcm converts captured float samples into wire-ready PCM16 frames
// and decodes inbound frames back into playable chunks.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	// BlockSize is the number of samples the capture layer delivers per block.
	BlockSize = 4096

	// InputRate is the microphone sample rate in Hz.
	InputRate = 16000

	// OutputRate is the synthesized-audio sample rate in Hz.
	OutputRate = 24000

	// Channels is fixed: both directions are mono.
	Channels = 1

	// InputMIMEType tags every outbound frame.
	InputMIMEType = "audio/pcm;rate=16000"
)

// Chunk is a fixed-length run of signed 16-bit samples. Immutable once
// produced; ownership passes to whichever stage holds it next.
type Chunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frame is the transport encoding of one Chunk: base64 little-endian PCM16
// plus the MIME descriptor. Consumed exactly once by the transport.
type Frame struct {
	Data     string
	MIMEType string
}

// FromFloat32 converts normalized samples in [-1, 1] by linear scaling.
// A sample at exactly +1.0 wraps (32768 overflows int16); that matches the
// capture source contract and is accepted rather than clamped.
func FromFloat32(samples []float32, sampleRate, channels int) Chunk {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = int16(int32(math.Round(float64(s) * 32768)))
	}
	return Chunk{Samples: out, SampleRate: sampleRate, Channels: channels}
}

// Encode produces the outbound frame for one chunk.
func Encode(c Chunk) Frame {
	return Frame{
		Data:     base64.StdEncoding.EncodeToString(BytesLE(c)),
		MIMEType: fmt.Sprintf("audio/pcm;rate=%d", c.SampleRate),
	}
}

// BytesLE returns the chunk's samples as little-endian bytes.
func BytesLE(c Chunk) []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// FromBytesLE builds a chunk from little-endian PCM16 bytes. A trailing odd
// byte is dropped.
func FromBytesLE(data []byte, sampleRate, channels int) Chunk {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return Chunk{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// DecodeBase64 decodes an inbound base64 PCM16 payload into a chunk.
func DecodeBase64(data string, sampleRate, channels int) (Chunk, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Chunk{}, fmt.Errorf("decode audio payload: %w", err)
	}
	return FromBytesLE(raw, sampleRate, channels), nil
}

// Duration is the playback duration of the chunk.
func Duration(c Chunk) time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}
