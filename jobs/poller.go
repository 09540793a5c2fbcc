// Package jobs bridges synchronous call sites to the asynchronous,
// job-based external computation service: a job is submitted, assigned an
// identifier, and its result retrieved by sequential polling until it
// completes or the attempt budget runs out.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/A-calculus/personalisedU/internal/timeutil"
	"github.com/A-calculus/personalisedU/logging"
)

// Defaults for the poll loop, matching the job service's expected cadence.
const (
	DefaultMaxAttempts  = 10
	DefaultPollInterval = 30 * time.Second
)

// Status is the lifecycle state of one outstanding job as tracked by the
// poll loop.
type Status string

const (
	// StatusPending means the job has been submitted but not yet completed.
	StatusPending Status = "pending"
	// StatusCompleted means the job finished and a result was extracted.
	StatusCompleted Status = "completed"
	// StatusTimedOut means the attempt budget was exhausted.
	StatusTimedOut Status = "timedOut"
)

// Runner is the submit/poll protocol a job target implements. Submit returns
// the external job identifier; Poll reports whether the job has completed and,
// if so, the raw result payload.
type Runner interface {
	Submit(ctx context.Context) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (done bool, result json.RawMessage, err error)
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	// MaxAttempts bounds the poll loop. Defaults to DefaultMaxAttempts.
	MaxAttempts int
	// PollInterval is the wait between consecutive polls. Defaults to
	// DefaultPollInterval.
	PollInterval time.Duration
	// Clock drives the interval waits; a fake clock makes tests instant.
	Clock timeutil.Clock
	// Logger for poll progress.
	Logger logging.Logger
}

// Poller drives the submit-then-poll protocol. At most one poll request is in
// flight per invocation; either the full result payload is returned or a
// typed error, never a partial result. The loop is abandoned when the
// caller's context is cancelled.
type Poller struct {
	maxAttempts  int
	pollInterval time.Duration
	clock        timeutil.Clock
	logger       logging.Logger
}

// NewPoller constructs a Poller with optional overrides.
func NewPoller(optFns ...func(o *PollerOptions)) *Poller {
	opts := PollerOptions{
		MaxAttempts:  DefaultMaxAttempts,
		PollInterval: DefaultPollInterval,
		Clock:        timeutil.RealClock{},
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Poller{
		maxAttempts:  opts.MaxAttempts,
		pollInterval: opts.PollInterval,
		clock:        opts.Clock,
		logger:       opts.Logger,
	}
}

// polledJob is the transient state of one outstanding job. It lives only on
// the stack of the SubmitAndAwait call that created it.
type polledJob struct {
	jobID       string
	attempts    int
	maxAttempts int
	interval    time.Duration
	status      Status
}

// SubmitAndAwait submits the job and polls sequentially until it completes,
// the attempt budget is exhausted, or the context is cancelled.
//
// Failure modes:
//   - submission transport failure: *SubmissionError (from the Runner)
//   - submission response without a job id: *MalformedResponseError (from the Runner)
//   - poll transport failure: *PollTransportError (from the Runner)
//   - attempt budget exhausted: *PollTimeoutError
//
// A job that fails externally and one that simply never completes are
// indistinguishable here; both surface as the timeout error.
func (p *Poller) SubmitAndAwait(ctx context.Context, run Runner) (json.RawMessage, error) {
	jobID, err := run.Submit(ctx)
	if err != nil {
		p.logger.Error("jobs.submit.failed", "error", err.Error())
		return nil, err
	}

	job := polledJob{
		jobID:       jobID,
		maxAttempts: p.maxAttempts,
		interval:    p.pollInterval,
		status:      StatusPending,
	}
	p.logger.Info("jobs.submitted", "job_id", job.jobID, "max_attempts", job.maxAttempts)

	for job.status == StatusPending {
		job.attempts++
		done, result, err := run.Poll(ctx, job.jobID)
		if err != nil {
			p.logger.Error("jobs.poll.failed", "job_id", job.jobID, "attempt", job.attempts, "error", err.Error())
			return nil, err
		}
		if done {
			job.status = StatusCompleted
			p.logger.Info("jobs.completed", "job_id", job.jobID, "attempts", job.attempts)
			return result, nil
		}
		p.logger.Debug("jobs.poll.pending", "job_id", job.jobID, "attempt", job.attempts, "max_attempts", job.maxAttempts)

		if job.attempts >= job.maxAttempts {
			job.status = StatusTimedOut
			break
		}
		if err := p.clock.Sleep(ctx, job.interval); err != nil {
			return nil, err
		}
	}

	p.logger.Warn("jobs.timed_out", "job_id", job.jobID, "attempts", job.attempts)
	return nil, &PollTimeoutError{JobID: job.jobID, Attempts: job.attempts}
}
