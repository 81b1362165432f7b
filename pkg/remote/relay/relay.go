package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicelink-go/voicelink-lite/pkg/pcm"
	"github.com/voicelink-go/voicelink-lite/pkg/session"
)

const defaultConnectTimeout = 15 * time.Second

// Connector dials a relay endpoint and speaks the hello handshake. It
// implements session.Connector.
type Connector struct {
	url     string
	headers http.Header
	dialer  *websocket.Dialer
	timeout time.Duration
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithHeader adds a header to the dial request, e.g. an Authorization bearer
// token for a protected relay.
func WithHeader(key, value string) ConnectorOption {
	return func(c *Connector) { c.headers.Set(key, value) }
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) ConnectorOption {
	return func(c *Connector) { c.dialer = d }
}

// WithConnectTimeout bounds the dial plus hello handshake when the caller's
// context carries no deadline.
func WithConnectTimeout(d time.Duration) ConnectorOption {
	return func(c *Connector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewConnector creates a connector for the given ws:// or wss:// URL.
func NewConnector(url string, opts ...ConnectorOption) *Connector {
	c := &Connector{
		url:     strings.TrimSpace(url),
		headers: make(http.Header),
		dialer:  websocket.DefaultDialer,
		timeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = &websocket.Dialer{}
	}
	return c
}

// Connect dials the relay, sends hello, and requires hello_ack as the first
// server frame. Any other first frame is a setup failure; the caller does not
// retry.
func (c *Connector) Connect(ctx context.Context, cfg session.RemoteConfig) (session.Remote, error) {
	if c.url == "" {
		return nil, errors.New("relay url must not be empty")
	}

	hello := ClientHello{
		Type:            "hello",
		ProtocolVersion: ProtocolVersion1,
		Model:           cfg.Model,
		Voice:           cfg.Voice,
		SystemPrompt:    cfg.SystemPrompt,
		AudioIn: AudioFormat{
			Encoding:     cfg.AudioIn.Encoding,
			SampleRateHz: cfg.AudioIn.SampleRateHz,
			Channels:     cfg.AudioIn.Channels,
		},
		AudioOut: AudioFormat{
			Encoding:     cfg.AudioOut.Encoding,
			SampleRateHz: cfg.AudioOut.SampleRateHz,
			Channels:     cfg.AudioOut.Channels,
		},
	}
	if err := ValidateHello(hello); err != nil {
		return nil, err
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, resp, err := c.dialer.DialContext(dialCtx, c.url, c.headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("relay dial %s failed (status %d): %w", c.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("relay dial %s: %w", c.url, err)
	}

	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	messageType, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read hello_ack: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if messageType != websocket.TextMessage {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first relay frame type %d", messageType)
	}

	first, err := DecodeServerMessage(payload)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	switch f := first.(type) {
	case ServerHelloAck:
		r := &remote{
			conn: conn,
			msgs: make(chan session.Message, 256),
			done: make(chan struct{}),
		}
		go r.readLoop()
		return r, nil
	case ServerError:
		_ = conn.Close()
		return nil, fmt.Errorf("relay rejected session: %s (%s)", strings.TrimSpace(f.Message), strings.TrimSpace(f.Code))
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first relay frame %T", first)
	}
}

// remote is an open relay session. It implements session.Remote.
type remote struct {
	conn *websocket.Conn

	msgs chan session.Message
	done chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

func (r *remote) Send(frame pcm.Frame) error {
	if r.closed.Load() {
		return errors.New("relay session is closed")
	}
	return r.sendJSON(ClientAudioFrame{
		Type:     "audio_frame",
		MIMEType: frame.MIMEType,
		DataB64:  frame.Data,
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
		r.writeMu.Lock()
		_ = r.conn.WriteJSON(ClientControl{Type: "control", Op: "end_session"})
		_ = r.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		r.writeMu.Unlock()
		_ = r.conn.Close()
	})
	<-r.done
	return nil
}

func (r *remote) sendJSON(v any) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteJSON(v)
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

// readLoop translates relay frames into session messages until the
// connection terminates. The consumer drains msgs until it closes, so sends
// here may block on the buffer without deadlocking.
func (r *remote) readLoop() {
	defer close(r.done)
	defer close(r.msgs)

	for {
		messageType, data, err := r.conn.ReadMessage()
		if err != nil {
			if r.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			r.setErr(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		frame, err := DecodeServerMessage(data)
		if err != nil {
			r.setErr(err)
			return
		}
		switch f := frame.(type) {
		case ServerAudioChunk:
			r.msgs <- session.Message{AudioParts: []string{f.DataB64}}
		case ServerTranscriptDelta:
			msg := session.Message{}
			if f.Role == "user" {
				msg.InputTranscript = f.Text
			} else {
				msg.OutputTranscript = f.Text
			}
			r.msgs <- msg
		case ServerTurnComplete:
			r.msgs <- session.Message{TurnComplete: true}
		case ServerInterrupted:
			r.msgs <- session.Message{Interrupted: true}
		case ServerError:
			r.setErr(fmt.Errorf("relay error: %s (%s)", strings.TrimSpace(f.Message), strings.TrimSpace(f.Code)))
			return
		case ServerHelloAck:
			// Duplicate ack after the handshake; ignore.
		}
	}
}
