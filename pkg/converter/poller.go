package converter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/errors"
)

// PollMode selects how a task is awaited
type PollMode string

const (
	// PollModeWait re-fetches until the task leaves waiting/processing
	PollModeWait PollMode = "wait"
	// PollModeSingle fetches once and trusts the sync host to block until settled
	PollModeSingle PollMode = "single"
)

// Wait-mode defaults: the interval doubles after each pending fetch up to
// DefaultPollMaxInterval.
const (
	DefaultPollInterval    = time.Second
	DefaultPollMaxInterval = 15 * time.Second
	DefaultPollMaxAttempts = 120
)

// PollConfig bounds how long a task is awaited
type PollConfig struct {
	Mode        PollMode
	Interval    time.Duration
	MaxInterval time.Duration
	MaxAttempts int
}

// DefaultPollConfig returns the wait-mode defaults
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Mode:        PollModeWait,
		Interval:    DefaultPollInterval,
		MaxInterval: DefaultPollMaxInterval,
		MaxAttempts: DefaultPollMaxAttempts,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	d := DefaultPollConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxInterval < c.Interval {
		c.MaxInterval = max(d.MaxInterval, c.Interval)
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	return c
}

// TaskFetcher reads a task's current state
type TaskFetcher interface {
	GetTask(ctx context.Context, id string) (*cloudconvert.Task, error)
}

type taskState int

const (
	statePending taskState = iota
	stateFinished
	stateFailed
)

// stateOf maps a vendor status onto the poll state machine. An absent or
// unknown status counts as settled since the sync host only answers then.
func stateOf(status cloudconvert.TaskStatus) taskState {
	switch status {
	case cloudconvert.StatusWaiting, cloudconvert.StatusProcessing:
		return statePending
	case cloudconvert.StatusError:
		return stateFailed
	default:
		return stateFinished
	}
}

type poller struct {
	api    TaskFetcher
	cfg    PollConfig
	logger *zap.Logger
}

// wait blocks until task id settles and returns its final state
func (p *poller) wait(ctx context.Context, id string) (*cloudconvert.Task, error) {
	if p.cfg.Mode == PollModeSingle {
		return p.api.GetTask(ctx, id)
	}

	interval := p.cfg.Interval
	for attempt := 1; ; attempt++ {
		task, err := p.api.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}

		switch stateOf(task.Status) {
		case stateFinished:
			return task, nil
		case stateFailed:
			return nil, errors.TaskFailed(errors.StageWait, id, task.Code, task.Message)
		}

		if attempt >= p.cfg.MaxAttempts {
			return nil, errors.PollTimeout(errors.StageWait, id, attempt)
		}

		p.logger.Debug("task pending",
			zap.String("task_id", id),
			zap.String("status", string(task.Status)),
			zap.Int("attempt", attempt),
			zap.Duration("next_poll", interval),
		)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Canceled(errors.StageWait, ctx.Err())
		case <-timer.C:
		}

		interval = min(interval*2, p.cfg.MaxInterval)
	}
}
