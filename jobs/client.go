package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/A-calculus/personalisedU/logging"
)

// completedStatus is the exact status string the job service reports for a
// finished job.
const completedStatus = "Completed"

// PlanRequest is the payload both job templates accept: the six profile
// fields plus the webhook placeholder the service requires.
type PlanRequest struct {
	BasicInfo       string `json:"basic_info"`
	UserKnowledge   string `json:"user_knowledge"`
	UserObjectives  string `json:"user_objectives"`
	ProgramInfo     string `json:"program_info"`
	UserSchedule    string `json:"user_schedule"`
	CalendarContent string `json:"calendar_content"`
	Webhook         string `json:"webhook"`
}

// submitResponse is the job service's acknowledgment of a submission.
type submitResponse struct {
	TaskID string `json:"Task_id"`
}

// pollResponse is the job service's poll answer. The useful payload is nested
// one level down in result.result.
type pollResponse struct {
	Status string `json:"status"`
	Result *struct {
		Result json.RawMessage `json:"result"`
	} `json:"result"`
}

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client talks to the multiagent job-execution service over HTTP. Submission
// posts a payload against a job template; polling reads the session result
// for the assigned task id.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient constructs a job service client for the given base URL.
func NewClient(baseURL string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{baseURL: baseURL, httpClient: opts.HTTPClient, logger: opts.Logger}
}

// Job binds a template id and payload to the client, producing a Runner for
// the Poller.
func (c *Client) Job(templateID string, payload PlanRequest) Runner {
	return &httpJob{client: c, templateID: templateID, payload: payload}
}

type httpJob struct {
	client     *Client
	templateID string
	payload    PlanRequest
}

// Submit posts the payload against the job template and extracts the task id.
func (j *httpJob) Submit(ctx context.Context) (string, error) {
	body, err := json.Marshal(j.payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	url := fmt.Sprintf("%s/execute/result/%s", j.client.baseURL, j.templateID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.httpClient.Do(req)
	if err != nil {
		return "", &SubmissionError{Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var sub submitResponse
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", &MalformedResponseError{Message: fmt.Sprintf("undecodable submission response: %v", err)}
	}
	if sub.TaskID == "" {
		return "", &MalformedResponseError{Message: "no Task_id in response"}
	}

	j.client.logger.Debug("jobs.http.submitted", "template", j.templateID, "task_id", sub.TaskID)
	return sub.TaskID, nil
}

// Poll reads the session result for the task id. done is true only when the
// service reports the exact status "Completed".
func (j *httpJob) Poll(ctx context.Context, jobID string) (bool, json.RawMessage, error) {
	url := fmt.Sprintf("%s/session/result/%s", j.client.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, nil, fmt.Errorf("build poll request: %w", err)
	}

	resp, err := j.client.httpClient.Do(req)
	if err != nil {
		return false, nil, &PollTransportError{JobID: jobID, Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, nil, &PollTransportError{JobID: jobID, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var poll pollResponse
	if err := json.Unmarshal(raw, &poll); err != nil {
		return false, nil, &PollTransportError{JobID: jobID, StatusCode: resp.StatusCode, Body: fmt.Sprintf("undecodable poll response: %v", err)}
	}

	if poll.Status != completedStatus {
		return false, nil, nil
	}
	if poll.Result == nil {
		return false, nil, &MalformedResponseError{Message: "completed job carried no result"}
	}
	return true, poll.Result.Result, nil
}
