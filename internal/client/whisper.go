package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/armelgeek/heysprech-api/internal/config"
	"github.com/armelgeek/heysprech-api/internal/model"
)

// Transcriber turns an audio artifact into ordered transcript segments.
type Transcriber interface {
	Transcribe(ctx context.Context, artifactPath string) ([]model.Segment, error)
}

// WhisperClient talks to the Whisper transcription microservice.
type WhisperClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	language   string
}

type transcribeResponse struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func NewWhisperClient(cfg *config.WhisperConfig) *WhisperClient {
	return &WhisperClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL:  cfg.ServiceURL,
		model:    cfg.Model,
		language: cfg.Language,
	}
}

// Transcribe uploads the audio file and returns its segments. A response
// with no segments is treated as malformed output, not an empty success.
func (c *WhisperClient) Transcribe(ctx context.Context, artifactPath string) ([]model.Segment, error) {
	file, err := os.Open(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(artifactPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy artifact: %w", err)
	}
	_ = writer.WriteField("model", c.model)
	_ = writer.WriteField("language", c.language)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, respBody)
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}
	if len(parsed.Segments) == 0 {
		return nil, fmt.Errorf("transcription returned no segments for %s", filepath.Base(artifactPath))
	}

	segments := make([]model.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		segments = append(segments, model.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
	}
	return segments, nil
}
