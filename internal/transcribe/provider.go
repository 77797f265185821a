// Package transcribe is the boundary to the external speech-to-text
// capability. The core only consumes the transcript text and language tag it
// produces.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// Result is a recognized transcript with its language tag.
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Provider produces a transcript for an audio payload.
type Provider interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (Result, error)
}

// HTTPProvider talks to a Whisper-style transcription endpoint over HTTP
// multipart.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPProvider creates a provider for the given endpoint. The API key is
// optional; some self-hosted engines run without auth.
func NewHTTPProvider(endpoint, apiKey, model string, timeout time.Duration, logger *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Transcribe uploads the audio and decodes the provider's response.
func (p *HTTPProvider) Transcribe(ctx context.Context, audio io.Reader, filename string) (Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return Result{}, fmt.Errorf("reading audio: %w", err)
	}
	if p.model != "" {
		if err := writer.WriteField("model", p.model); err != nil {
			return Result{}, fmt.Errorf("building request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("transcription provider returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decoding transcription response: %w", err)
	}

	p.logger.Debug("transcription complete",
		"duration", time.Since(start),
		"language", result.Language,
	)

	return result, nil
}
