package jobs

import "fmt"

// SubmissionError reports a non-success transport outcome while submitting a
// job. The status code and response body are preserved for the caller.
type SubmissionError struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("job submission failed with status %d: %s", e.StatusCode, e.Body)
}

// MalformedResponseError reports a submission response the job service
// accepted but that is missing the job identifier.
type MalformedResponseError struct {
	Message string `json:"message"`
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed job service response: %s", e.Message)
}

// PollTransportError reports a non-success transport outcome on a poll
// request.
type PollTransportError struct {
	JobID      string `json:"job_id"`
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
}

func (e *PollTransportError) Error() string {
	return fmt.Sprintf("polling job %s failed with status %d: %s", e.JobID, e.StatusCode, e.Body)
}

// PollTimeoutError reports that the attempt budget was exhausted before the
// job completed. The job may still finish on the external side; callers must
// treat this as "retry the whole operation".
type PollTimeoutError struct {
	JobID    string `json:"job_id"`
	Attempts int    `json:"attempts"`
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("job %s did not complete within %d poll attempts", e.JobID, e.Attempts)
}
