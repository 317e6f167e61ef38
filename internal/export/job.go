package export

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/edupress/edupress/internal/content"
)

// Status represents the state of an export job.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusGenerating       Status = "generating"
	StatusDeliveringLocal  Status = "delivering_local"
	StatusDeliveringRemote Status = "delivering_remote"
	StatusSucceeded        Status = "succeeded"
	StatusFailed           Status = "failed"
)

// Job tracks the state of a single export. Jobs are transient: they live
// only for the duration of one invocation and are never persisted.
type Job struct {
	mu sync.Mutex

	ID           string               `json:"job_id"`
	LessonID     string               `json:"lesson_id"`
	ResourceType content.ResourceType `json:"resource_type"`

	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJob creates an idle job for a lesson+resource export.
func NewJob(lessonID string, rt content.ResourceType) *Job {
	now := time.Now()
	return &Job{
		ID:           jobID(lessonID, rt, now),
		LessonID:     lessonID,
		ResourceType: rt,
		Status:       StatusIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(s Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = s
	j.UpdatedAt = time.Now()
}

// Fail moves the job to its terminal failed state with a human-readable
// reason.
func (j *Job) Fail(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Reason = reason
	j.UpdatedAt = time.Now()
}

// CurrentStatus returns the job status under the lock.
func (j *Job) CurrentStatus() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

func jobID(lessonID string, rt content.ResourceType, now time.Time) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s-%s-%d", lessonID, rt, now.UnixNano()))
	return fmt.Sprintf("%x", h[:])[:20]
}
