package models

import "time"

// RunStatus is the outcome of one pipeline run
type RunStatus string

const (
	RunStatusPublished RunStatus = "published"
	RunStatusAborted   RunStatus = "aborted"
	RunStatusSkipped   RunStatus = "skipped"
)

// RunResult is returned to the trigger of a pipeline run. Failures are
// reported here, never as a Go error.
type RunResult struct {
	Status    RunStatus     `json:"status"`
	Stage     string        `json:"stage,omitempty"`
	PostID    string        `json:"post_id,omitempty"`
	Title     string        `json:"title,omitempty"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}
