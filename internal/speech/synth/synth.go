package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/advisim/advisim/internal/adapters/circuitbreaker"
	"github.com/advisim/advisim/internal/adapters/retry"
	"github.com/advisim/advisim/internal/ports"
)

const (
	speechPath = "/v1/audio/speech"

	// synthesisTimeout bounds one synthesis request.
	synthesisTimeout = 30 * time.Second
)

// Adapter implements ports.Synthesizer over an OpenAI-style speech
// endpoint. The endpoint returns the encoded utterance as the raw
// response body.
type Adapter struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	defaultVoice string
	retryConfig  retry.BackoffConfig
	breaker      *circuitbreaker.CircuitBreaker
}

func New(baseURL, apiKey, model, defaultVoice string) *Adapter {
	return &Adapter{
		httpClient:   &http.Client{Timeout: synthesisTimeout},
		baseURL:      baseURL,
		apiKey:       apiKey,
		model:        model,
		defaultVoice: defaultVoice,
		retryConfig:  retry.HTTPConfig(),
		breaker:      circuitbreaker.New(5, 30*time.Second),
	}
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

func (a *Adapter) Synthesize(ctx context.Context, text string, opts ports.SynthesisOptions) ([]byte, error) {
	var audio []byte
	err := a.breaker.Execute(func() error {
		var err error
		audio, err = a.doSynthesize(ctx, text, opts)
		return err
	})
	return audio, err
}

func (a *Adapter) doSynthesize(ctx context.Context, text string, opts ports.SynthesisOptions) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	req := speechRequest{
		Model:          a.model,
		Input:          text,
		Voice:          a.defaultVoice,
		ResponseFormat: "mp3",
	}
	if opts.Voice != "" {
		req.Voice = opts.Voice
	}
	if opts.Speed > 0 {
		req.Speed = opts.Speed
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var audio []byte
	err = retry.WithBackoffHTTP(ctx, a.retryConfig, func() (int, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+speechPath, bytes.NewBuffer(payload))
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if a.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
		}

		resp, err := a.httpClient.Do(httpReq)
		if err != nil {
			return 0, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("speech API error (status %d): %s", resp.StatusCode, string(body))
		}

		audio = body
		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech API returned no audio")
	}
	return audio, nil
}
