package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures every outbound message.
type recordingSender struct {
	messages []string
	chatIDs  []int64
	menus    int
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.chatIDs = append(s.chatIDs, chatID)
	s.messages = append(s.messages, text)
	return nil
}

func (s *recordingSender) SendMenu(_ context.Context, chatID int64, _ string, _ [][]InlineButton) error {
	s.chatIDs = append(s.chatIDs, chatID)
	s.menus++
	return nil
}

// scriptedTurns answers every turn with a fixed reply or error.
type scriptedTurns struct {
	reply string
	err   error
	keys  []string
	texts []string
}

func (s *scriptedTurns) ProcessTurn(_ context.Context, key, text string) (string, error) {
	s.keys = append(s.keys, key)
	s.texts = append(s.texts, text)
	return s.reply, s.err
}

func postUpdate(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/telegram", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRunsTurnForText(t *testing.T) {
	turns := &scriptedTurns{reply: "Hello!"}
	sender := &recordingSender{}
	h := NewHandler(turns, sender)

	rec := postUpdate(t, h, `{"message":{"chat":{"id":42},"text":"hi"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"42"}, turns.keys)
	assert.Equal(t, []string{"hi"}, turns.texts)
	require.Equal(t, []string{"Hello!"}, sender.messages)
	assert.Equal(t, []int64{42}, sender.chatIDs)
}

func TestWebhookStartShowsMenu(t *testing.T) {
	turns := &scriptedTurns{}
	sender := &recordingSender{}
	h := NewHandler(turns, sender)

	rec := postUpdate(t, h, `{"message":{"chat":{"id":42},"text":"/start"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, turns.keys, "/start must not run a turn")
	assert.Equal(t, 1, sender.menus)
}

func TestWebhookCallbackTranslatesToTurn(t *testing.T) {
	turns := &scriptedTurns{reply: "Working on it."}
	sender := &recordingSender{}
	h := NewHandler(turns, sender)

	postUpdate(t, h, `{"callback_query":{"data":"create_plan","message":{"chat":{"id":7}}}}`)
	postUpdate(t, h, `{"callback_query":{"data":"create_calendar","message":{"chat":{"id":7}}}}`)

	require.Len(t, turns.texts, 2)
	assert.Contains(t, turns.texts[0], "plan")
	assert.Contains(t, turns.texts[1], "calendar")
	assert.Equal(t, []string{"7", "7"}, turns.keys)
}

func TestWebhookTurnFailureRepliesInBand(t *testing.T) {
	turns := &scriptedTurns{err: errors.New("backend down")}
	sender := &recordingSender{}
	h := NewHandler(turns, sender)

	rec := postUpdate(t, h, `{"message":{"chat":{"id":42},"text":"hi"}}`)

	assert.Equal(t, http.StatusOK, rec.Code, "webhook still acknowledges the update")
	require.Len(t, sender.messages, 1)
	assert.Equal(t, errorReply, sender.messages[0])
}

func TestWebhookRejectsNonPost(t *testing.T) {
	h := NewHandler(&scriptedTurns{}, &recordingSender{})

	req := httptest.NewRequest(http.MethodGet, "/api/telegram", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClientSendMessage(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("TOKEN", func(o *ClientOptions) {
		o.BaseURL = srv.URL + "/bot"
	})

	err := c.SendMessage(context.Background(), 42, "hello")

	require.NoError(t, err)
	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Contains(t, gotBody, `"chat_id":42`)
	assert.Contains(t, gotBody, `"text":"hello"`)
}

func TestClientSendMessageNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("TOKEN", func(o *ClientOptions) {
		o.BaseURL = srv.URL + "/bot"
	})

	err := c.SendMessage(context.Background(), 42, "hello")
	assert.Error(t, err)
}
