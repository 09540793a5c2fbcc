package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() PlanRequest {
	return PlanRequest{
		BasicInfo:       "student",
		UserKnowledge:   "beginner",
		UserObjectives:  "learn Go",
		ProgramInfo:     "bootcamp",
		UserSchedule:    "evenings",
		CalendarContent: "none",
		Webhook:         "N/A",
	}
}

func TestClient_SubmitExtractsTaskID(t *testing.T) {
	var gotPath string
	var gotPayload PlanRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]string{"Task_id": "T1"})
	}))
	defer srv.Close()

	job := NewClient(srv.URL).Job("plan-template", testPayload())
	jobID, err := job.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "T1", jobID)
	assert.Equal(t, "/execute/result/plan-template", gotPath)
	assert.Equal(t, "N/A", gotPayload.Webhook)
	assert.Equal(t, "learn Go", gotPayload.UserObjectives)
}

func TestClient_SubmitNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "template not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Job("bad", testPayload()).Submit(context.Background())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusNotFound, subErr.StatusCode)
	assert.Contains(t, subErr.Body, "template not found")
}

func TestClient_SubmitMissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Job("plan-template", testPayload()).Submit(context.Background())

	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Message, "Task_id")
}

func TestClient_PollStatusHandling(t *testing.T) {
	tests := []struct {
		name     string
		response string
		done     bool
		result   string
	}{
		{name: "pending", response: `{"status":"Pending"}`, done: false},
		// Status comparison is exact-match on "Completed".
		{name: "lowercase completed stays pending", response: `{"status":"completed"}`, done: false},
		{name: "completed", response: `{"status":"Completed","result":{"result":"plan text"}}`, done: true, result: `"plan text"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/session/result/T1", r.URL.Path)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			done, result, err := NewClient(srv.URL).Job("plan-template", testPayload()).Poll(context.Background(), "T1")

			require.NoError(t, err)
			assert.Equal(t, tt.done, done)
			if tt.result != "" {
				assert.JSONEq(t, tt.result, string(result))
			}
		})
	}
}

func TestClient_PollTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL).Job("plan-template", testPayload()).Poll(context.Background(), "T1")

	var transportErr *PollTransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	assert.Equal(t, "T1", transportErr.JobID)
}

func TestClient_PollCompletedWithoutResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"Completed"}`))
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL).Job("plan-template", testPayload()).Poll(context.Background(), "T1")

	var malformed *MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}
