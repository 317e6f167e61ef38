package export

import (
	"errors"
	"sync"

	"github.com/edupress/edupress/internal/measure"
)

// ErrBusy is returned when an export is requested while another job holds
// the staging surface. Such requests are rejected, never interleaved:
// concurrent jobs sharing one measurement/rasterization surface would
// corrupt each other's output.
var ErrBusy = errors.New("an export is already in progress")

// Staging is the process-wide surface shared by height probing and page
// rasterization. It is lazily handed to at most one job at a time and
// released on exit, success or failure.
type Staging struct {
	mu     sync.Mutex
	engine *measure.Engine
	holder string
}

func NewStaging(engine *measure.Engine) *Staging {
	return &Staging{engine: engine}
}

// With runs fn holding the staging surface on behalf of jobID. A second
// caller gets ErrBusy instead of waiting.
func (s *Staging) With(jobID string, fn func(engine *measure.Engine) error) error {
	if !s.mu.TryLock() {
		return ErrBusy
	}
	s.holder = jobID
	defer func() {
		s.holder = ""
		s.mu.Unlock()
	}()
	return fn(s.engine)
}
