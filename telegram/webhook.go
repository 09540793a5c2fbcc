package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/A-calculus/personalisedU/logging"
)

// Callback data values for the start menu buttons.
const (
	callbackCreatePlan     = "create_plan"
	callbackCreateCalendar = "create_calendar"
)

// Canned turn messages the menu buttons translate into.
const (
	createPlanMessage     = "Create a personalized plan for me based on my saved profile."
	createCalendarMessage = "Create my calendar file from my personalized plan."
)

// errorReply is sent when a turn fails outright.
const errorReply = "Sorry, something went wrong while processing your message. Please try again."

// Update is the subset of a Bot API webhook update this service consumes.
type Update struct {
	Message       *IncomingMessage `json:"message"`
	CallbackQuery *CallbackQuery   `json:"callback_query"`
}

// IncomingMessage is an inbound chat message.
type IncomingMessage struct {
	Chat Chat   `json:"chat"`
	Text string `json:"text"`
}

// Chat identifies the conversation; its id is the context store key.
type Chat struct {
	ID int64 `json:"id"`
}

// CallbackQuery is an inline keyboard button press.
type CallbackQuery struct {
	Message *IncomingMessage `json:"message"`
	Data    string           `json:"data"`
}

// TurnRunner processes one conversational turn and returns the reply text.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, key, text string) (string, error)
}

// Sender delivers outbound messages. *Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMenu(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Logger logging.Logger
}

// Handler is the webhook endpoint. Inbound text runs a full turn; the /start
// command answers with the action menu; menu button presses are translated
// into canned turn messages.
type Handler struct {
	turns  TurnRunner
	sender Sender
	logger logging.Logger
}

// NewHandler builds the webhook handler.
func NewHandler(turns TurnRunner, sender Sender, optFns ...func(o *HandlerOptions)) *Handler {
	opts := HandlerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Handler{turns: turns, sender: sender, logger: opts.Logger}
}

// ServeHTTP implements http.Handler. The webhook always acknowledges a
// well-formed POST with 200 so Telegram does not redeliver; turn failures are
// reported to the user in-band.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "undecodable update", http.StatusBadRequest)
		return
	}

	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		h.handleCallback(r.Context(), update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		h.handleMessage(r.Context(), update.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) handleCallback(ctx context.Context, cb *CallbackQuery) {
	chatID := cb.Message.Chat.ID
	switch cb.Data {
	case callbackCreatePlan:
		h.runTurn(ctx, chatID, createPlanMessage)
	case callbackCreateCalendar:
		h.runTurn(ctx, chatID, createCalendarMessage)
	default:
		h.logger.Warn("telegram.callback.unknown", "data", cb.Data)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *IncomingMessage) {
	if msg.Text == "/start" {
		h.sendMenu(ctx, msg.Chat.ID)
		return
	}
	h.runTurn(ctx, msg.Chat.ID, msg.Text)
}

func (h *Handler) sendMenu(ctx context.Context, chatID int64) {
	rows := [][]InlineButton{{
		{Text: "Create Plan", CallbackData: callbackCreatePlan},
		{Text: "Create Calendar", CallbackData: callbackCreateCalendar},
	}}
	if err := h.sender.SendMenu(ctx, chatID, "Please choose an option:", rows); err != nil {
		h.logger.Error("telegram.menu.send_failed", "chat_id", chatID, "error", err.Error())
	}
}

func (h *Handler) runTurn(ctx context.Context, chatID int64, text string) {
	key := strconv.FormatInt(chatID, 10)
	reply, err := h.turns.ProcessTurn(ctx, key, text)
	if err != nil {
		h.logger.Error("telegram.turn.failed", "conversation", key, "error", err.Error())
		reply = errorReply
	}
	if err := h.sender.SendMessage(ctx, chatID, reply); err != nil {
		h.logger.Error("telegram.reply.send_failed", "conversation", key, "error", err.Error())
	}
}
