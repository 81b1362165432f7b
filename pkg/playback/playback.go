// Package playback schedules decoded audio chunks on an output clock so
// consecutive chunks play back-to-back with no gap or overlap, and supports
// immediate flush-and-stop on interruption.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/voicelink-go/voicelink-lite/pkg/pcm"
)

// Output is the audio device the scheduler plays into. Now reports the
// device clock; Play starts a chunk at the given clock time.
type Output interface {
	Now() time.Duration
	Play(chunk pcm.Chunk, start time.Duration) (Handle, error)
}

// Handle is one scheduled buffer playback. Stop force-stops it; stopping a
// handle that already ended may return an error, which callers ignore.
// Done is closed when playback ends, naturally or by force.
type Handle interface {
	Stop() error
	Done() <-chan struct{}
}

// DecodeFunc turns a transport-encoded audio payload into a playable chunk.
type DecodeFunc func(data string) (pcm.Chunk, error)

// Scheduler owns the playback cursor and the set of in-flight handles.
// Construct one per session and discard it on teardown.
type Scheduler struct {
	out    Output
	decode DecodeFunc

	mu     sync.Mutex
	cursor time.Duration
	active map[Handle]struct{}
	gen    uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDecode overrides the decode step. The default decodes base64 PCM16 at
// the fixed 24 kHz mono output format.
func WithDecode(fn DecodeFunc) Option {
	return func(s *Scheduler) { s.decode = fn }
}

// NewScheduler creates a scheduler bound to an output device.
func NewScheduler(out Output, opts ...Option) *Scheduler {
	s := &Scheduler{
		out: out,
		decode: func(data string) (pcm.Chunk, error) {
			return pcm.DecodeBase64(data, pcm.OutputRate, pcm.Channels)
		},
		active: make(map[Handle]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleEncoded decodes an inbound audio payload and schedules it at the
// cursor. The decode step is asynchronous relative to the dispatch flow: if
// an interrupt lands before decode completes, the result is discarded rather
// than scheduled with a stale cursor.
func (s *Scheduler) ScheduleEncoded(data string) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	chunk, err := s.decode(data)
	if err != nil {
		return err
	}
	return s.scheduleAt(chunk, gen)
}

// Schedule schedules an already-decoded chunk at the cursor.
func (s *Scheduler) Schedule(chunk pcm.Chunk) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return s.scheduleAt(chunk, gen)
}

func (s *Scheduler) scheduleAt(chunk pcm.Chunk, gen uint64) error {
	if len(chunk.Samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		// Superseded by an interrupt or stop while decoding.
		return nil
	}

	now := s.out.Now()
	if s.cursor < now {
		s.cursor = now
	}
	start := s.cursor

	handle, err := s.out.Play(chunk, start)
	if err != nil {
		return fmt.Errorf("schedule playback: %w", err)
	}
	s.cursor = start + pcm.Duration(chunk)
	s.active[handle] = struct{}{}

	go s.reapWhenDone(handle, gen)
	return nil
}

// reapWhenDone removes a handle from the active set once its playback ends.
// The generation check keeps a late Done signal from touching a set that an
// interrupt already cleared and repopulated.
func (s *Scheduler) reapWhenDone(h Handle, gen uint64) {
	<-h.Done()
	s.mu.Lock()
	if s.gen == gen {
		delete(s.active, h)
	}
	s.mu.Unlock()
}

// Interrupt force-stops every active handle, clears the set, and resets the
// cursor to the output clock's current time. Stop failures on already-ended
// handles are expected and swallowed. Safe to call at any time, including
// with nothing playing.
func (s *Scheduler) Interrupt() {
	s.flush(true)
}

// Stop is the teardown variant of Interrupt: same flush, but the cursor
// resets to zero because the session's output clock is going away.
func (s *Scheduler) Stop() {
	s.flush(false)
}

func (s *Scheduler) flush(resetToNow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h := range s.active {
		_ = h.Stop()
	}
	s.active = make(map[Handle]struct{})
	if resetToNow {
		s.cursor = s.out.Now()
	} else {
		s.cursor = 0
	}
	s.gen++
}

// Cursor reports the next scheduled start time.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// ActiveCount reports how many handles have not yet ended.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
