package model

import "time"

// Job tracks one media source through the transcription/translation pipeline.
type Job struct {
	ID           string     `json:"id"`
	SourceRef    string     `json:"sourceRef"`
	ArtifactPath string     `json:"artifactPath"`
	Status       JobStatus  `json:"status"`
	Stage        Stage      `json:"stage"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	Result       []byte     `json:"-"` // Stored as JSON, only set on completion
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Segment is one transcript line with its timing and translation.
type Segment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Translation string  `json:"translation,omitempty"`
}
