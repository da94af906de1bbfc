package client

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/armelgeek/heysprech-api/internal/config"
)

// AudioExtractor acquires the audio artifact for an external media reference.
type AudioExtractor interface {
	Extract(ctx context.Context, sourceRef string) (string, error)
}

// YtdlpExtractor shells out to yt-dlp to download and extract the audio
// track of a YouTube video as mp3.
type YtdlpExtractor struct {
	binary   string
	audioDir string
}

func NewYtdlpExtractor(cfg *config.MediaConfig) *YtdlpExtractor {
	return &YtdlpExtractor{
		binary:   cfg.YtdlpBinary,
		audioDir: cfg.AudioDir,
	}
}

// Extract downloads the audio for the given YouTube id into the audio
// directory and returns the resulting file path. Nothing is written to the
// job store here; a failed extraction leaves no trace.
func (e *YtdlpExtractor) Extract(ctx context.Context, sourceRef string) (string, error) {
	if err := os.MkdirAll(e.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	url := "https://www.youtube.com/watch?v=" + sourceRef
	args := []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--no-playlist",
		"-o", filepath.Join(e.audioDir, "%(id)s.%(ext)s"),
		url,
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp %s: %w: %s", sourceRef, err, stderr.String())
	}

	audioPath := filepath.Join(e.audioDir, sourceRef+".mp3")
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("yt-dlp produced no artifact for %s: %w", sourceRef, err)
	}
	return audioPath, nil
}
