package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/advisim/advisim/internal/adapters/retry"
	"github.com/advisim/advisim/internal/domain"
	"github.com/advisim/advisim/internal/ports"
	"github.com/advisim/advisim/internal/speech/protocol"
)

// ConnectionState is the lifecycle state of the speech connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

const (
	// connectTimeout bounds the whole connect attempt.
	connectTimeout = 10 * time.Second

	// readyGrace is how long to wait for the server's ready message after
	// the transport is up. Some deployments skip the handshake, so silence
	// past the grace period counts as connected.
	readyGrace = 500 * time.Millisecond

	ackTimeout   = 10 * time.Second
	writeTimeout = 10 * time.Second

	// maxBatchChunks is the greedy concatenation limit per playback pass.
	maxBatchChunks = 5

	minSpeed = 0.25
	maxSpeed = 4.0
)

// Client streams synthesized speech from a gateway and plays it through
// an AudioSink, enforcing ordered gapless playback and at most one
// logical utterance in flight.
type Client struct {
	url  string
	sink ports.AudioSink

	mu        sync.Mutex
	conn      *websocket.Conn
	state     ConnectionState
	readyCh   chan struct{}
	readyOnce *sync.Once
	closing   bool
	defaults  ports.SynthesisOptions
	reqSeq    int
	pending   map[string]chan protocol.SpeechAck

	writeMu sync.Mutex

	queueMu    sync.Mutex
	queue      [][]byte
	isPlaying  bool
	generation int

	onStateChange []func(ConnectionState)
	onError       []func(error)
	onSpeechStart []func()
	onSpeechEnd   []func()
}

func New(url string, sink ports.AudioSink, defaults ports.SynthesisOptions) *Client {
	defaults.Speed = clampSpeed(defaults.Speed)
	return &Client{
		url:      url,
		sink:     sink,
		state:    StateDisconnected,
		defaults: defaults,
		pending:  make(map[string]chan protocol.SpeechAck),
	}
}

// Observer registration. Callbacks fire synchronously from the event
// source; there is no unregister.

func (c *Client) OnStateChange(fn func(ConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = append(c.onStateChange, fn)
}

func (c *Client) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = append(c.onError, fn)
}

func (c *Client) OnSpeechStart(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSpeechStart = append(c.onSpeechStart, fn)
}

func (c *Client) OnSpeechEnd(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSpeechEnd = append(c.onSpeechEnd, fn)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	observers := append([]func(ConnectionState){}, c.onStateChange...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

func (c *Client) notifyError(err error) {
	c.mu.Lock()
	observers := append([]func(error){}, c.onError...)
	c.mu.Unlock()
	for _, fn := range observers {
		fn(err)
	}
}

func (c *Client) notifySpeechStart() {
	c.mu.Lock()
	observers := append([]func(){}, c.onSpeechStart...)
	c.mu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

func (c *Client) notifySpeechEnd() {
	c.mu.Lock()
	observers := append([]func(){}, c.onSpeechEnd...)
	c.mu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

// Connect opens the speech connection. It is a no-op when already
// connected or connecting. The connection is considered established on
// the server's ready message, or after a short grace period when the
// transport is up and the server stays silent.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.closing = false
	c.readyCh = make(chan struct{})
	c.readyOnce = &sync.Once{}
	readyCh := c.readyCh
	c.mu.Unlock()

	c.setState(StateConnecting)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	slog.Info("speech: connecting", "url", c.url)

	dialer := websocket.Dialer{HandshakeTimeout: connectTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			slog.Error("speech: connection failed", "status", resp.StatusCode, "error", err)
		} else {
			slog.Error("speech: connection failed", "error", err)
		}
		c.setState(StateError)
		c.notifyError(err)
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)

	select {
	case <-readyCh:
		slog.Info("speech: server ready")
	case <-time.After(readyGrace):
		slog.Info("speech: no ready message, assuming connected")
	case <-ctx.Done():
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.setState(StateError)
		c.notifyError(domain.ErrConnectionTimeout)
		return domain.ErrConnectionTimeout
	}

	c.setState(StateConnected)
	return nil
}

// Disconnect closes the connection deliberately. Pending audio is
// dropped.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.clearQueue()

	if conn != nil {
		conn.Close()
	}
	c.setState(StateDisconnected)
	slog.Info("speech: disconnected")
}

// Reconnect re-establishes a dropped connection with bounded retries.
func (c *Client) Reconnect(ctx context.Context) error {
	return retry.WithBackoffAlways(ctx, retry.ReconnectConfig(), func() error {
		return c.Connect(ctx)
	}, func(attempt int, err error, delay time.Duration) {
		slog.Warn("speech: reconnect failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	})
}

// SetSpeed updates the persistent default playback speed, clamped to the
// supported range.
func (c *Client) SetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults.Speed = clampSpeed(speed)
}

// Speed returns the effective default speed.
func (c *Client) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaults.Speed
}

// SetVoice updates the persistent default voice.
func (c *Client) SetVoice(voice string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults.Voice = voice
}

// Speak requests synthesis of one utterance. It returns once the gateway
// has accepted or rejected the request; playback completion is signaled
// via the speech-end callback. Any previous utterance is stopped first,
// so at most one is ever in flight.
func (c *Client) Speak(ctx context.Context, text string, opts *ports.SynthesisOptions) error {
	if c.State() != StateConnected {
		return domain.ErrNotConnected
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyText
	}

	c.mu.Lock()
	if opts != nil {
		if opts.Voice != "" {
			c.defaults.Voice = opts.Voice
		}
		if opts.Speed != 0 {
			c.defaults.Speed = clampSpeed(opts.Speed)
		}
	}
	effective := c.defaults
	c.reqSeq++
	requestID := fmt.Sprintf("req_%d", c.reqSeq)
	ackCh := make(chan protocol.SpeechAck, 1)
	c.pending[requestID] = ackCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
	}()

	c.Stop()

	env := protocol.NewRequestEnvelope(protocol.TypeGenerateSpeech, requestID, protocol.GenerateSpeech{
		Text:  text,
		Voice: effective.Voice,
		Speed: effective.Speed,
	})
	if err := c.writeEnvelope(env); err != nil {
		return fmt.Errorf("send speech request: %w", err)
	}

	select {
	case ack := <-ackCh:
		if !ack.Success {
			if ack.Error == "" {
				ack.Error = "synthesis rejected"
			}
			return fmt.Errorf("%w: %s", domain.ErrSynthesisRejected, ack.Error)
		}
		return nil
	case <-time.After(ackTimeout):
		return domain.ErrConnectionTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop clears pending audio and tells the gateway to cancel synthesis in
// progress. Safe to call when idle.
func (c *Client) Stop() {
	c.clearQueue()

	if c.State() == StateConnected {
		env := protocol.NewEnvelope(protocol.TypeStopSpeech, nil)
		if err := c.writeEnvelope(env); err != nil {
			slog.Debug("speech: stop signal failed", "error", err)
		}
	}
}

func (c *Client) clearQueue() {
	c.queueMu.Lock()
	c.queue = nil
	c.generation++
	c.queueMu.Unlock()
}

func (c *Client) writeEnvelope(env *protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return domain.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			deliberate := c.closing
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()

			if deliberate {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("speech: read error", "error", err)
			}
			c.setState(StateError)
			c.notifyError(err)
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			slog.Error("speech: decode error", "error", err)
			continue
		}
		c.handleMessage(env)
	}
}

func (c *Client) handleMessage(env *protocol.Envelope) {
	switch env.Type {
	case protocol.TypeConnected:
		c.mu.Lock()
		once, ch := c.readyOnce, c.readyCh
		c.mu.Unlock()
		if once != nil {
			once.Do(func() { close(ch) })
		}

	case protocol.TypeSpeechAck:
		ack, err := protocol.DecodeBody[protocol.SpeechAck](env)
		if err != nil {
			slog.Error("speech: bad ack", "error", err)
			return
		}
		c.mu.Lock()
		ch := c.pending[env.RequestID]
		c.mu.Unlock()
		if ch != nil {
			ch <- *ack
		}

	case protocol.TypeSpeechStart:
		c.notifySpeechStart()

	case protocol.TypeAudioChunk:
		chunk, err := protocol.DecodeBody[protocol.AudioChunk](env)
		if err != nil {
			slog.Error("speech: bad chunk", "error", err)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(chunk.Data)
		if err != nil {
			slog.Error("speech: chunk decode failed, skipping", "index", chunk.Index, "error", err)
			return
		}
		c.enqueue(raw)

	case protocol.TypeSpeechEnd:
		end, err := protocol.DecodeBody[protocol.SpeechEnd](env)
		if err == nil {
			slog.Debug("speech: utterance stream complete", "bytes", end.TotalBytes)
		}

	case protocol.TypeError:
		remote, err := protocol.DecodeBody[protocol.Error](env)
		if err != nil {
			slog.Error("speech: bad error payload", "error", err)
			return
		}
		slog.Error("speech: server error", "code", remote.Code, "message", remote.Message)
		c.notifyError(fmt.Errorf("speech service: %s", remote.Message))
	}
}

// enqueue appends one decoded chunk and starts the playback loop when
// none is running. The isPlaying guard keeps exactly one drain loop
// active.
func (c *Client) enqueue(raw []byte) {
	c.queueMu.Lock()
	c.queue = append(c.queue, raw)
	start := !c.isPlaying
	if start {
		c.isPlaying = true
	}
	gen := c.generation
	c.queueMu.Unlock()

	if start {
		go c.playLoop(gen)
	}
}

// playLoop drains the queue in arrival order, concatenating up to
// maxBatchChunks consecutive chunks per sink call. It exits when the
// queue is empty after a drain pass, firing the speech-end callback, or
// silently when Stop invalidated its generation and nothing newer is
// queued. When chunks of a newer utterance arrived while the loop was
// blocked in the sink, it adopts that generation and keeps draining so
// the chunks are not stranded.
func (c *Client) playLoop(gen int) {
	for {
		batch, next, ok := c.dequeueBatch(gen)
		if !ok {
			return
		}
		gen = next
		if batch == nil {
			break
		}
		if err := c.sink.Play(context.Background(), batch); err != nil {
			slog.Error("speech: playback failed, skipping batch", "bytes", len(batch), "error", err)
		}
	}

	c.queueMu.Lock()
	c.isPlaying = false
	c.queueMu.Unlock()
	c.notifySpeechEnd()
}

// dequeueBatch pops up to maxBatchChunks chunks as one buffer. It
// returns (nil, gen, true) when the queue is empty and (nil, gen, false)
// when the loop's generation has been invalidated by Stop and the queue
// holds nothing newer. A non-empty queue under a stale generation means
// a fresh utterance started while the loop was busy; the loop takes it
// over because enqueue saw isPlaying and did not start a second loop.
func (c *Client) dequeueBatch(gen int) ([]byte, int, bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	if c.generation != gen {
		if len(c.queue) == 0 {
			c.isPlaying = false
			return nil, gen, false
		}
		gen = c.generation
	}
	if len(c.queue) == 0 {
		return nil, gen, true
	}

	n := len(c.queue)
	if n > maxBatchChunks {
		n = maxBatchChunks
	}

	var size int
	for _, chunk := range c.queue[:n] {
		size += len(chunk)
	}
	batch := make([]byte, 0, size)
	for _, chunk := range c.queue[:n] {
		batch = append(batch, chunk...)
	}
	c.queue = c.queue[n:]
	return batch, gen, true
}

func clampSpeed(speed float64) float64 {
	if speed == 0 {
		return 1.0
	}
	if speed < minSpeed {
		return minSpeed
	}
	if speed > maxSpeed {
		return maxSpeed
	}
	return speed
}
