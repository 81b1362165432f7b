// Package speaker renders scheduled PCM chunks through oto. It provides the
// playback output clock: positions handed to Play are offsets on the
// speaker's own timeline, so chunks scheduled back to back render gapless.
package speaker

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/voicelink-go/voicelink-lite/pkg/pcm"
	"github.com/voicelink-go/voicelink-lite/pkg/playback"
)

// Speaker is an oto-backed playback.Output at the synthesis format.
type Speaker struct {
	ctx   *oto.Context
	epoch time.Time
}

// NewSpeaker opens the default output device at the synthesis format and
// waits until it is ready.
func NewSpeaker() (*Speaker, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   pcm.OutputRate,
		ChannelCount: pcm.Channels,
		Format:       oto.FormatSignedInt16LE,
		// Small buffer keeps barge-in latency low at the cost of underrun
		// headroom.
		BufferSize: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready
	return &Speaker{ctx: ctx, epoch: time.Now()}, nil
}

// Now returns the current position on the speaker timeline.
func (s *Speaker) Now() time.Duration {
	return time.Since(s.epoch)
}

// Play schedules one chunk at the given timeline position. A position in the
// past plays immediately. Each chunk gets its own player; oto mixes
// concurrent players, so an overlap caused by a late stop degrades to audible
// overlap rather than blocking.
func (s *Speaker) Play(chunk pcm.Chunk, start time.Duration) (playback.Handle, error) {
	if len(chunk.Samples) == 0 {
		return nil, errors.New("empty chunk")
	}
	if chunk.SampleRate != pcm.OutputRate || chunk.Channels != pcm.Channels {
		return nil, fmt.Errorf("chunk format %dHz/%dch, output is %dHz/%dch", chunk.SampleRate, chunk.Channels, pcm.OutputRate, pcm.Channels)
	}

	player := s.ctx.NewPlayer(bytes.NewReader(pcm.BytesLE(chunk)))
	h := &handle{player: player, done: make(chan struct{})}

	delay := start - s.Now()
	if delay < 0 {
		delay = 0
	}
	h.startTimer = time.AfterFunc(delay, player.Play)
	h.doneTimer = time.AfterFunc(delay+pcm.Duration(chunk), h.finish)
	return h, nil
}

type handle struct {
	player     *oto.Player
	startTimer *time.Timer
	doneTimer  *time.Timer

	once sync.Once
	done chan struct{}
}

// Stop halts the chunk immediately, whether it is pending or rendering.
func (h *handle) Stop() error {
	var err error
	h.once.Do(func() {
		h.startTimer.Stop()
		h.doneTimer.Stop()
		err = h.player.Close()
		close(h.done)
	})
	return err
}

func (h *handle) finish() {
	h.once.Do(func() {
		_ = h.player.Close()
		close(h.done)
	})
}

// Done closes when the chunk finished or was stopped.
func (h *handle) Done() <-chan struct{} { return h.done }
