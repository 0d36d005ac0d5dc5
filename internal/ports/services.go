package ports

import "context"

// IDGenerator generates prefixed unique identifiers.
type IDGenerator interface {
	GenerateSessionID() string
	GenerateReviewID() string
	GenerateRubricID() string
	GenerateCompetencyID() string
}

// SynthesisOptions tune one synthesis request.
type SynthesisOptions struct {
	Voice string
	Speed float64
}

// Synthesizer converts text into encoded audio. Implementations talk to
// an HTTP speech backend; the returned bytes are a complete encoded
// utterance (e.g. an MP3 stream) ready for chunked delivery.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts SynthesisOptions) ([]byte, error)
}

// AudioSink decodes and plays one buffer of encoded audio. Play blocks
// until the buffer has finished playing; the streaming audio client
// relies on that to keep playback strictly sequential.
type AudioSink interface {
	Play(ctx context.Context, data []byte) error
}
