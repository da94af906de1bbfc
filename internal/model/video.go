package model

import "time"

// SubmitVideoRequest is the ingestion payload
type SubmitVideoRequest struct {
	YoutubeID string `json:"youtube_id" validate:"required,min=5,max=20"`
}

// SubmitVideoResponse is returned once the job is durably queued
type SubmitVideoResponse struct {
	JobID     string    `json:"jobId"`
	YoutubeID string    `json:"youtubeId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobResponse is the inspection view of a job
type JobResponse struct {
	ID           string     `json:"id"`
	SourceRef    string     `json:"sourceRef"`
	ArtifactPath string     `json:"artifactPath"`
	Status       JobStatus  `json:"status"`
	Stage        Stage      `json:"stage"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	Segments     []Segment  `json:"segments,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// DeleteVideoResponse confirms a deletion
type DeleteVideoResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}

// SystemStatusResponse exposes queue depths and worker liveness
type SystemStatusResponse struct {
	TranscriptionQueue int64 `json:"transcription_queue"`
	TranslationQueue   int64 `json:"translation_queue"`
	ActiveWorkers      int64 `json:"active_workers"`
}
