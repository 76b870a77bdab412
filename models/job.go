package models

import "time"

// JobKind distinguishes a single-repository scan job from a group scan.
type JobKind string

const (
	JobKindIntra JobKind = "intra"
	JobKindInter JobKind = "inter"
)

// JobState is the ScanJob lifecycle: queued -> running -> (completed | failed),
// failed -> (retry -> queued) until attempts == maxAttempts, or canceled from
// queued/running.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

// Progress describes where a running job is within the Orchestrator pipeline.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// JobError records why a job failed, surfaced to callers inspecting history.
type JobError struct {
	Kind          string     `json:"kind"`
	Message       string     `json:"message"`
	AttemptNumber int        `json:"attemptNumber"`
	WillRetry     bool       `json:"willRetry"`
	NextRetryAt   *time.Time `json:"nextRetryAt,omitempty"`
}

// ScanJob is a single unit of queued work, scanning one Repository or one
// RepositoryGroup.
type ScanJob struct {
	ID          string     `json:"id"          db:"id"`
	Kind        JobKind    `json:"kind"        db:"kind"`
	Target      string     `json:"target"      db:"target"`
	State       JobState   `json:"state"       db:"state"`
	Attempts    int        `json:"attempts"    db:"attempts"`
	MaxAttempts int        `json:"maxAttempts" db:"max_attempts"`
	CreatedAt   time.Time  `json:"createdAt"   db:"created_at"`
	StartedAt   *time.Time `json:"startedAt,omitempty" db:"started_at"`
	EndedAt     *time.Time `json:"endedAt,omitempty"   db:"ended_at"`
	Error       *JobError  `json:"error,omitempty"     db:"error_json"`
	Progress    *Progress  `json:"progress,omitempty"  db:"progress_json"`
}

// CanTransition reports whether the state machine may move from the job's
// current state to next. Double-transitions (e.g. completing an already
// canceled job) are rejected.
func (j *ScanJob) CanTransition(next JobState) bool {
	switch j.State {
	case JobQueued:
		return next == JobRunning || next == JobCanceled
	case JobRunning:
		return next == JobCompleted || next == JobFailed || next == JobCanceled
	case JobFailed:
		return next == JobQueued // retry
	default:
		return false
	}
}
