// Package session owns the lifecycle of a live voice session: it wires the
// capture pipeline to the outbound send path, dispatches inbound messages to
// playback and transcript state, and enforces the single-active-session
// invariant.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voicelink-go/voicelink-lite/pkg/pcm"
	"github.com/voicelink-go/voicelink-lite/pkg/playback"
	"github.com/voicelink-go/voicelink-lite/pkg/transcript"
)

// State is the controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateActive
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Config carries the per-controller session-open parameters.
type Config struct {
	Model        string
	Voice        string
	SystemPrompt string

	// HistoryLimit bounds the committed conversation history.
	// Zero means transcript.DefaultHistoryLimit.
	HistoryLimit int
}

// UIState is the snapshot the presentation layer renders from.
type UIState struct {
	State      State
	Active     bool
	Connecting bool

	UserLive        string
	ModelLive       string
	ActiveUtterance string
	History         []transcript.Entry
}

// Controller drives sessions against a Connector. The transcript reconciler
// is controller-scoped, not session-scoped: committed history survives a
// stop/start cycle and is cleared only by ResetConversation. Everything else
// (remote handle, playback scheduler) is constructed fresh per session and
// discarded on teardown.
type Controller struct {
	logger    *slog.Logger
	connector Connector
	source    Source
	output    playback.Output
	cfg       Config

	rec *transcript.Reconciler

	// lifecycle serializes start/stop so toggles cannot interleave and at
	// most one remote is ever live.
	lifecycle sync.Mutex

	mu           sync.Mutex
	state        State
	remote       Remote
	sched        *playback.Scheduler
	dispatchDone chan struct{}

	onChange func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnChange registers a hook invoked after every state-affecting event.
// It is called without internal locks held.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// NewController wires a controller. logger may be nil.
func NewController(logger *slog.Logger, connector Connector, source Source, output playback.Output, cfg Config, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	recOpts := []transcript.Option{}
	if cfg.HistoryLimit > 0 {
		recOpts = append(recOpts, transcript.WithHistoryLimit(cfg.HistoryLimit))
	}
	c := &Controller{
		logger:    logger,
		connector: connector,
		source:    source,
		output:    output,
		cfg:       cfg,
		rec:       transcript.NewReconciler(recOpts...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Toggle is the single user-initiated action: it starts a session when idle
// and stops the current one otherwise. Asking to start while a session is
// live is defined as a stop request, never a second start.
func (c *Controller) Toggle(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.currentState() == StateIdle {
		return c.start(ctx)
	}
	c.stopLocked()
	return nil
}

// Stop tears down the current session if one is live. Idempotent.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.stopLocked()
}

// start runs with the lifecycle lock held and the controller idle.
// Setup order: microphone first, then the remote session — a permission or
// device failure aborts before anything is opened, with no retry.
func (c *Controller) start(ctx context.Context) error {
	c.setState(StateOpening)

	if err := c.source.Start(c.onBlock); err != nil {
		c.logger.Error("capture start failed", "error", err)
		c.setState(StateIdle)
		return err
	}

	remote, err := c.connector.Connect(ctx, RemoteConfig{
		Model:        c.cfg.Model,
		Voice:        c.cfg.Voice,
		SystemPrompt: c.cfg.SystemPrompt,
		AudioIn:      DefaultAudioIn(),
		AudioOut:     DefaultAudioOut(),
	})
	if err != nil {
		c.logger.Error("remote connect failed", "error", err)
		_ = c.source.Stop()
		c.setState(StateIdle)
		return err
	}

	sched := playback.NewScheduler(c.output)
	done := make(chan struct{})

	c.mu.Lock()
	c.remote = remote
	c.sched = sched
	c.dispatchDone = done
	c.state = StateActive
	c.mu.Unlock()
	c.notify()

	c.logger.Info("live session open", "model", c.cfg.Model, "voice", c.cfg.Voice)
	go c.dispatch(remote, sched, done)
	return nil
}

// stopLocked runs with the lifecycle lock held. It closes the remote handle
// and waits for the dispatch loop to finish teardown.
func (c *Controller) stopLocked() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	remote := c.remote
	done := c.dispatchDone
	c.mu.Unlock()
	c.notify()

	_ = remote.Close()
	<-done
}

// onBlock is the capture callback: one outbound frame per block, sent in
// capture order. Send is fire-and-forget relative to capture; a failed send
// is logged and dropped, never propagated into capture.
func (c *Controller) onBlock(block []float32) {
	c.mu.Lock()
	remote := c.remote
	active := c.state == StateActive
	c.mu.Unlock()
	if !active || remote == nil {
		return
	}

	frame := pcm.Encode(pcm.FromFloat32(block, pcm.InputRate, pcm.Channels))
	if err := remote.Send(frame); err != nil {
		c.logger.Debug("outbound frame dropped", "error", err)
	}
}

// dispatch is the session's single inbound consumer. It is the only writer
// to the scheduler and the reconciler while the session is live, which keeps
// their state single-writer without further coordination.
func (c *Controller) dispatch(remote Remote, sched *playback.Scheduler, done chan struct{}) {
	for msg := range remote.Messages() {
		if msg.Interrupted {
			sched.Interrupt()
		}
		for _, part := range msg.AudioParts {
			if err := sched.ScheduleEncoded(part); err != nil {
				c.logger.Warn("inbound audio dropped", "error", err)
			}
		}
		if msg.InputTranscript != "" {
			c.rec.AppendUser(msg.InputTranscript)
		}
		if msg.OutputTranscript != "" {
			c.rec.AppendModel(msg.OutputTranscript)
		}
		if msg.TurnComplete {
			c.rec.CommitTurn()
		}
		c.notify()
	}

	c.teardown(remote, sched)
	close(done)
	c.notify()
}

// teardown returns the controller to idle after the remote terminates, by
// error, remote close, or explicit stop. Playback handles are stopped
// best-effort, the cursor resets to zero, and the live accumulators are
// cleared. Committed history is deliberately left alone.
func (c *Controller) teardown(remote Remote, sched *playback.Scheduler) {
	sched.Stop()
	c.rec.ClearLive()
	_ = c.source.Stop()

	c.mu.Lock()
	c.remote = nil
	c.sched = nil
	c.state = StateIdle
	c.mu.Unlock()

	if err := remote.Err(); err != nil {
		c.logger.Error("live session ended", "error", err)
	} else {
		c.logger.Info("live session closed")
	}
}

// ResetConversation clears the committed history. This is the explicit fresh
// session reset; plain stop/start cycles never clear it.
func (c *Controller) ResetConversation() {
	c.rec.Reset()
	c.notify()
}

// Snapshot returns the UI-facing state.
func (c *Controller) Snapshot() UIState {
	state := c.currentState()
	user, model := c.rec.Live()
	return UIState{
		State:           state,
		Active:          state == StateActive,
		Connecting:      state == StateOpening,
		UserLive:        user,
		ModelLive:       model,
		ActiveUtterance: c.rec.ActiveUtterance(),
		History:         c.rec.History(),
	}
}

func (c *Controller) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
