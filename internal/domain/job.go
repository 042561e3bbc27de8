package domain

import "time"

// JobType enumerates supported generation job families.
type JobType string

const (
	JobTypeAudio      JobType = "audio"
	JobTypeImage      JobType = "image"
	JobTypeImageBatch JobType = "image_batch"
	JobTypeVideo      JobType = "video"
	JobTypeScript     JobType = "script"
	JobTypeScriptLong JobType = "script_long"
)

// GenerationJobTypes lists the families the cancel controller targets by
// default when the caller does not narrow the scope.
func GenerationJobTypes() []JobType {
	return []JobType{JobTypeAudio, JobTypeImage, JobTypeImageBatch, JobTypeVideo, JobTypeScript, JobTypeScriptLong}
}

// ValidJobType reports whether t is a known job family.
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeAudio, JobTypeImage, JobTypeImageBatch, JobTypeVideo, JobTypeScript, JobTypeScriptLong:
		return true
	}
	return false
}

// JobTypeForMedium returns the per-item job family for a medium.
func JobTypeForMedium(m Medium) JobType {
	switch m {
	case MediumAudio:
		return JobTypeAudio
	case MediumImage:
		return JobTypeImage
	case MediumVideo:
		return JobTypeVideo
	}
	return ""
}

// JobStatus enumerates job lifecycle states. The machine is strictly forward:
// queued -> running -> {completed|failed}, plus queued -> failed for
// cancellation. Terminal rows are immutable.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Active reports whether the job still occupies the pipeline.
func (s JobStatus) Active() bool {
	return s == JobStatusQueued || s == JobStatusRunning
}

// Job is one dispatched unit of generation work. SentenceID is empty for
// batch-container jobs; the batch payload enumerates its member sentences.
type Job struct {
	ID           string
	SentenceID   string
	ProjectID    string
	Type         JobType
	Status       JobStatus
	Progress     int
	ErrorMessage string
	ResultFile   string
	Payload      []byte
	TotalSteps   int
	CurrentStep  int
	StepName     string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}
