package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/armelgeek/heysprech-api/internal/config"
	"github.com/armelgeek/heysprech-api/internal/model"
)

// Translator attaches a translation to every segment of a transcript.
type Translator interface {
	TranslateSegments(ctx context.Context, segments []model.Segment) ([]model.Segment, error)
}

// TranslateClient talks to the MarianMT translation microservice. The
// service exposes a single-text endpoint, so segments are translated one by
// one in order.
type TranslateClient struct {
	httpClient *http.Client
	baseURL    string
}

type translateRequest struct {
	Text string `json:"text"`
}

type translateResponse struct {
	Translation string `json:"translation"`
}

func NewTranslateClient(cfg *config.TranslatorConfig) *TranslateClient {
	return &TranslateClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Translate translates a single text.
func (c *TranslateClient) Translate(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(translateRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("translation service returned %d: %s", resp.StatusCode, respBody)
	}

	var parsed translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode translation response: %w", err)
	}
	return parsed.Translation, nil
}

// TranslateSegments returns the same segments in the same order with the
// translation field filled in. Segments with empty text keep an empty
// translation rather than being sent to the model.
func (c *TranslateClient) TranslateSegments(ctx context.Context, segments []model.Segment) ([]model.Segment, error) {
	out := make([]model.Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			out[i].Translation = ""
			continue
		}
		translation, err := c.Translate(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out[i].Translation = translation
	}
	return out, nil
}
