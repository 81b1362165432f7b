package pcm

import (
	"testing"
	"time"
)

func TestFromFloat32_Deterministic(t *testing.T) {
	t.Parallel()

	in := []float32{0, 0.5, -0.5, 0.999969, -1.0}
	a := FromFloat32(in, InputRate, Channels)
	b := FromFloat32(in, InputRate, Channels)
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("sample %d: %d != %d", i, a.Samples[i], b.Samples[i])
		}
	}
	if a.Samples[0] != 0 {
		t.Fatalf("zero sample = %d, want 0", a.Samples[0])
	}
	if a.Samples[1] != 16384 {
		t.Fatalf("0.5 -> %d, want 16384", a.Samples[1])
	}
	if a.Samples[2] != -16384 {
		t.Fatalf("-0.5 -> %d, want -16384", a.Samples[2])
	}
	if a.Samples[4] != -32768 {
		t.Fatalf("-1.0 -> %d, want -32768", a.Samples[4])
	}
}

func TestFromFloat32_PositiveFullScaleWraps(t *testing.T) {
	t.Parallel()

	// 1.0 * 32768 does not fit in int16; the conversion wraps rather than
	// clamps. Accepted numeric edge case.
	c := FromFloat32([]float32{1.0}, InputRate, Channels)
	if c.Samples[0] != -32768 {
		t.Fatalf("+1.0 -> %d, want wrapped -32768", c.Samples[0])
	}
}

func TestEncode_MIMEAndRoundTrip(t *testing.T) {
	t.Parallel()

	block := make([]float32, BlockSize)
	chunk := FromFloat32(block, InputRate, Channels)
	frame := Encode(chunk)

	if frame.MIMEType != InputMIMEType {
		t.Fatalf("mime=%q, want %q", frame.MIMEType, InputMIMEType)
	}

	back, err := DecodeBase64(frame.Data, InputRate, Channels)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back.Samples) != BlockSize {
		t.Fatalf("round-trip samples=%d, want %d", len(back.Samples), BlockSize)
	}
	for i, s := range back.Samples {
		if s != 0 {
			t.Fatalf("sample %d = %d, want 0", i, s)
		}
	}
}

func TestRoundTrip_LosslessForArbitrarySamples(t *testing.T) {
	t.Parallel()

	chunk := Chunk{
		Samples:    []int16{-32768, -1, 0, 1, 255, 256, 32767},
		SampleRate: OutputRate,
		Channels:   Channels,
	}
	frame := Encode(chunk)
	back, err := DecodeBase64(frame.Data, OutputRate, Channels)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back.Samples) != len(chunk.Samples) {
		t.Fatalf("len=%d, want %d", len(back.Samples), len(chunk.Samples))
	}
	for i := range chunk.Samples {
		if back.Samples[i] != chunk.Samples[i] {
			t.Fatalf("sample %d: got %d, want %d", i, back.Samples[i], chunk.Samples[i])
		}
	}
}

func TestDecodeBase64_RejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := DecodeBase64("not base64!!", OutputRate, Channels); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	c := Chunk{Samples: make([]int16, OutputRate/2), SampleRate: OutputRate, Channels: 1}
	if got := Duration(c); got != 500*time.Millisecond {
		t.Fatalf("duration=%v, want 500ms", got)
	}
	if got := Duration(Chunk{}); got != 0 {
		t.Fatalf("empty duration=%v, want 0", got)
	}
}
