package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-calculus/personalisedU/internal/timeutil"
)

// scriptedRunner replays a fixed poll outcome sequence for a canned job id.
type scriptedRunner struct {
	jobID     string
	submitErr error
	polls     []pollStep
	pollCalls int
	onPoll    func(call int)
}

type pollStep struct {
	done   bool
	result json.RawMessage
	err    error
}

func (r *scriptedRunner) Submit(context.Context) (string, error) {
	if r.submitErr != nil {
		return "", r.submitErr
	}
	return r.jobID, nil
}

func (r *scriptedRunner) Poll(_ context.Context, jobID string) (bool, json.RawMessage, error) {
	call := r.pollCalls
	r.pollCalls++
	if r.onPoll != nil {
		r.onPoll(call)
	}
	if call >= len(r.polls) {
		return false, nil, nil // keep reporting pending past the script
	}
	step := r.polls[call]
	return step.done, step.result, step.err
}

func newTestPoller(maxAttempts int) (*Poller, *timeutil.FakeClock) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	p := NewPoller(func(o *PollerOptions) {
		o.MaxAttempts = maxAttempts
		o.PollInterval = 30 * time.Second
		o.Clock = clock
	})
	return p, clock
}

func TestPoller_SuccessAfterPendingPolls(t *testing.T) {
	p, clock := newTestPoller(10)
	run := &scriptedRunner{jobID: "T1", polls: []pollStep{
		{},
		{},
		{done: true, result: json.RawMessage(`"R"`)},
	}}

	result, err := p.SubmitAndAwait(context.Background(), run)

	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"R"`), result)
	assert.Equal(t, 3, run.pollCalls)
	// One interval wait between each consecutive poll, none after completion.
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, clock.Sleeps())
}

func TestPoller_TimeoutAfterExactBudget(t *testing.T) {
	p, clock := newTestPoller(2)
	run := &scriptedRunner{jobID: "T1"}

	result, err := p.SubmitAndAwait(context.Background(), run)

	assert.Nil(t, result)
	var timeoutErr *PollTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "T1", timeoutErr.JobID)
	assert.Equal(t, 2, timeoutErr.Attempts)
	assert.Equal(t, 2, run.pollCalls)
	// No wait after the final attempt.
	assert.Equal(t, []time.Duration{30 * time.Second}, clock.Sleeps())
}

func TestPoller_SubmissionErrorPropagates(t *testing.T) {
	p, _ := newTestPoller(10)
	run := &scriptedRunner{submitErr: &SubmissionError{StatusCode: 503, Body: "unavailable"}}

	_, err := p.SubmitAndAwait(context.Background(), run)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, 503, subErr.StatusCode)
	assert.Equal(t, 0, run.pollCalls)
}

func TestPoller_MissingJobIDPropagates(t *testing.T) {
	p, _ := newTestPoller(10)
	run := &scriptedRunner{submitErr: &MalformedResponseError{Message: "no Task_id in response"}}

	_, err := p.SubmitAndAwait(context.Background(), run)

	var malformed *MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestPoller_PollTransportErrorPropagates(t *testing.T) {
	p, _ := newTestPoller(10)
	run := &scriptedRunner{jobID: "T1", polls: []pollStep{
		{},
		{err: &PollTransportError{JobID: "T1", StatusCode: 500}},
	}}

	_, err := p.SubmitAndAwait(context.Background(), run)

	var transportErr *PollTransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 500, transportErr.StatusCode)
	assert.Equal(t, 2, run.pollCalls)
}

func TestPoller_CancelledContextStopsLoop(t *testing.T) {
	p, _ := newTestPoller(10)
	ctx, cancel := context.WithCancel(context.Background())
	run := &scriptedRunner{jobID: "T1"}
	run.onPoll = func(call int) {
		if call == 0 {
			cancel() // abandon the operation after the first pending poll
		}
	}

	_, err := p.SubmitAndAwait(ctx, run)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, run.pollCalls)
}
