package gateway

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/advisim/advisim/internal/adapters/metrics"
	"github.com/advisim/advisim/internal/domain"
	"github.com/advisim/advisim/internal/ports"
	"github.com/advisim/advisim/internal/speech/protocol"
)

const (
	writeTimeout = 10 * time.Second

	// maxTextLength caps one synthesis request.
	maxTextLength = 4000

	// chunkSize is the audio slice per frame.
	chunkSize = 16 * 1024

	// chunkPacing spaces frames out so slow consumers keep up without
	// the whole utterance buffering client side at once.
	chunkPacing = 5 * time.Millisecond
)

// Gateway is the server side of the speech WebSocket. Each connection
// may stream one utterance at a time; a second request while a stream is
// active is rejected, a stop-speech cancels the stream in flight.
type Gateway struct {
	synth    ports.Synthesizer
	upgrader websocket.Upgrader
}

func New(synth ports.Synthesizer) *Gateway {
	return &Gateway{
		synth: synth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// session is the per-connection state.
type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu         sync.Mutex
	streaming  bool
	cancelCurr context.CancelFunc
}

func (s *session) write(env *protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// ServeHTTP upgrades the request and runs the connection's read loop.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("gateway: upgrade failed", "error", err)
		return
	}

	sess := &session{conn: conn}
	defer func() {
		sess.stopStream()
		conn.Close()
	}()

	if err := sess.write(protocol.NewEnvelope(protocol.TypeConnected, nil)); err != nil {
		slog.Error("gateway: ready message failed", "error", err)
		return
	}

	slog.Info("gateway: client connected", "remote", conn.RemoteAddr())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("gateway: read error", "error", err)
			}
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			slog.Error("gateway: decode error", "error", err)
			continue
		}

		switch env.Type {
		case protocol.TypeGenerateSpeech:
			g.handleGenerate(r.Context(), sess, env)
		case protocol.TypeStopSpeech:
			sess.stopStream()
		default:
			slog.Debug("gateway: ignoring message", "type", env.Type)
		}
	}
}

func (g *Gateway) handleGenerate(ctx context.Context, sess *session, env *protocol.Envelope) {
	req, err := protocol.DecodeBody[protocol.GenerateSpeech](env)
	if err != nil {
		sess.write(protocol.NewRequestEnvelope(protocol.TypeSpeechAck, env.RequestID, protocol.SpeechAck{
			Success: false,
			Error:   "malformed request",
		}))
		return
	}

	text := strings.TrimSpace(req.Text)
	switch {
	case text == "":
		g.reject(sess, env.RequestID, domain.ErrEmptyText.Error())
		return
	case len(text) > maxTextLength:
		g.reject(sess, env.RequestID, domain.ErrTextTooLong.Error())
		return
	}

	sess.mu.Lock()
	if sess.streaming {
		sess.mu.Unlock()
		g.reject(sess, env.RequestID, domain.ErrStreamInProgress.Error())
		return
	}
	streamCtx, cancel := context.WithCancel(ctx)
	sess.streaming = true
	sess.cancelCurr = cancel
	sess.mu.Unlock()

	if err := sess.write(protocol.NewRequestEnvelope(protocol.TypeSpeechAck, env.RequestID, protocol.SpeechAck{Success: true})); err != nil {
		sess.stopStream()
		return
	}

	metrics.SpeechRequestsTotal.WithLabelValues("accepted").Inc()

	go g.stream(streamCtx, sess, text, ports.SynthesisOptions{
		Voice: req.Voice,
		Speed: req.Speed,
	})
}

func (g *Gateway) reject(sess *session, requestID, reason string) {
	metrics.SpeechRequestsTotal.WithLabelValues("rejected").Inc()
	sess.write(protocol.NewRequestEnvelope(protocol.TypeSpeechAck, requestID, protocol.SpeechAck{
		Success: false,
		Error:   reason,
	}))
}

// stream synthesizes the utterance and pushes it out in paced chunks.
func (g *Gateway) stream(ctx context.Context, sess *session, text string, opts ports.SynthesisOptions) {
	defer sess.endStream()

	start := time.Now()
	audio, err := g.synth.Synthesize(ctx, text, opts)
	if err != nil {
		slog.Error("gateway: synthesis failed", "error", err)
		sess.write(protocol.NewEnvelope(protocol.TypeError, protocol.Error{
			Code:    "synthesis_failed",
			Message: err.Error(),
		}))
		return
	}
	metrics.SynthesisDuration.Observe(time.Since(start).Seconds())

	total := (len(audio) + chunkSize - 1) / chunkSize
	if err := sess.write(protocol.NewEnvelope(protocol.TypeSpeechStart, protocol.SpeechStart{Voice: opts.Voice, TotalChunks: total})); err != nil {
		return
	}

	var sent int
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			slog.Info("gateway: stream cancelled", "sent_chunks", i)
			return
		default:
		}

		end := (i + 1) * chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		chunk := audio[i*chunkSize : end]

		err := sess.write(protocol.NewEnvelope(protocol.TypeAudioChunk, protocol.AudioChunk{
			Data:  base64.StdEncoding.EncodeToString(chunk),
			Index: i,
		}))
		if err != nil {
			slog.Error("gateway: chunk write failed", "index", i, "error", err)
			return
		}
		sent += len(chunk)
		metrics.SpeechStreamBytes.Add(float64(len(chunk)))

		if i < total-1 {
			time.Sleep(chunkPacing)
		}
	}

	sess.write(protocol.NewEnvelope(protocol.TypeSpeechEnd, protocol.SpeechEnd{TotalBytes: sent}))
	slog.Info("gateway: utterance streamed", "chunks", total, "bytes", sent)
}

// stopStream cancels the in-flight stream, if any.
func (s *session) stopStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelCurr != nil {
		s.cancelCurr()
		s.cancelCurr = nil
	}
	s.streaming = false
}

// endStream clears the streaming guard after a stream goroutine exits.
func (s *session) endStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = false
	s.cancelCurr = nil
}
