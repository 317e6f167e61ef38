package export

import (
	"testing"
	"time"

	"github.com/edupress/edupress/internal/content"
)

func TestJobLifecycle(t *testing.T) {
	j := NewJob("lesson-1", content.ResourceNotes)
	if j.CurrentStatus() != StatusIdle {
		t.Fatalf("new job must start idle, got %s", j.CurrentStatus())
	}
	if j.ID == "" {
		t.Fatal("expected a job id")
	}

	j.SetStatus(StatusGenerating)
	j.SetStatus(StatusDeliveringLocal)
	j.SetStatus(StatusSucceeded)
	if j.CurrentStatus() != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", j.CurrentStatus())
	}
}

func TestJobFail(t *testing.T) {
	j := NewJob("lesson-1", content.ResourceNotes)
	j.SetStatus(StatusGenerating)
	j.Fail("paginate: boom")
	if j.CurrentStatus() != StatusFailed {
		t.Errorf("expected failed, got %s", j.CurrentStatus())
	}
	if j.Reason != "paginate: boom" {
		t.Errorf("unexpected reason %q", j.Reason)
	}
}

func TestJobIDsDiffer(t *testing.T) {
	a := NewJob("lesson-1", content.ResourceNotes)
	time.Sleep(time.Microsecond)
	b := NewJob("lesson-1", content.ResourceNotes)
	if a.ID == b.ID {
		t.Errorf("two jobs for the same lesson must get distinct ids, both %s", a.ID)
	}
}
