package client

import (
	"context"
	"io"
	"sync"
)

// WriterSink plays audio by writing the encoded bytes to an io.Writer.
// It is the sink used by the CLI to render an utterance to a file or a
// player's stdin.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Play(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(data)
	return err
}
