package protocol

type MessageType uint16

const (
	TypeError MessageType = 1

	// Client to server.
	TypeGenerateSpeech MessageType = 10
	TypeStopSpeech     MessageType = 11

	// Server to client.
	TypeConnected   MessageType = 20
	TypeSpeechAck   MessageType = 21
	TypeSpeechStart MessageType = 22
	TypeAudioChunk  MessageType = 23
	TypeSpeechEnd   MessageType = 24
)

// GenerateSpeech asks the gateway to synthesize and stream one utterance.
type GenerateSpeech struct {
	Text  string  `msgpack:"text" json:"text"`
	Voice string  `msgpack:"voice,omitempty" json:"voice,omitempty"`
	Speed float64 `msgpack:"speed,omitempty" json:"speed,omitempty"`
}

// SpeechAck answers a GenerateSpeech request before any audio flows.
type SpeechAck struct {
	Success bool   `msgpack:"success" json:"success"`
	Error   string `msgpack:"error,omitempty" json:"error,omitempty"`
}

// SpeechStart announces the first chunk of an utterance is coming,
// naming the voice the audio was synthesized with.
type SpeechStart struct {
	Voice       string `msgpack:"voice,omitempty" json:"voice,omitempty"`
	TotalChunks int    `msgpack:"totalChunks" json:"totalChunks"`
}

// AudioChunk carries one base64-encoded slice of the utterance. Index is
// the chunk's position in stream order.
type AudioChunk struct {
	Data  string `msgpack:"data" json:"data"`
	Index int    `msgpack:"index" json:"index"`
}

// SpeechEnd closes an utterance stream.
type SpeechEnd struct {
	TotalBytes int `msgpack:"totalBytes" json:"totalBytes"`
}

// Error reports a gateway-side failure.
type Error struct {
	Code    string `msgpack:"code" json:"code"`
	Message string `msgpack:"message" json:"message"`
}
