package model

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further automatic transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Pipeline stages
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageTranslation   Stage = "translation"
)

// Queue names, one per stage. Kept as the original deployment named them so
// dashboards and redis-cli inspection carry over.
const (
	TranscriptionQueue = "transcription_queue"
	TranslationQueue   = "translation_queue"
)
