package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultPollTimeout = 30 * time.Second

// Telegram is a Bot API transport using long polling. It converts updates to
// Events and renders Outbound messages as sendMessage / editMessageText
// calls with inline keyboards.
type Telegram struct {
	token   string
	baseURL string
	http    *http.Client
	timeout time.Duration
	offset  int64
}

// TelegramOption customizes the transport.
type TelegramOption func(*Telegram)

// WithBaseURL points the transport at a different API host (used by tests).
func WithBaseURL(u string) TelegramOption {
	return func(t *Telegram) { t.baseURL = strings.TrimRight(u, "/") }
}

// WithPollTimeout sets the long-poll timeout.
func WithPollTimeout(d time.Duration) TelegramOption {
	return func(t *Telegram) { t.timeout = d }
}

// NewTelegram creates the transport. The token is the bot credential issued
// by the platform.
func NewTelegram(token string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		token:   token,
		baseURL: "https://api.telegram.org",
		timeout: defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.http == nil {
		// The HTTP timeout must outlast the long-poll window.
		t.http = &http.Client{Timeout: t.timeout + 10*time.Second}
	}
	return t
}

// Wire structs for the subset of the Bot API the transport uses.

type tgUser struct {
	ID int64 `json:"id"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgMessage struct {
	MessageID int     `json:"message_id"`
	From      *tgUser `json:"from"`
	Chat      tgChat  `json:"chat"`
	Text      string  `json:"text"`
}

type tgCallbackQuery struct {
	ID      string     `json:"id"`
	From    tgUser     `json:"from"`
	Message *tgMessage `json:"message"`
	Data    string     `json:"data"`
}

type tgUpdate struct {
	UpdateID      int64            `json:"update_id"`
	Message       *tgMessage       `json:"message"`
	CallbackQuery *tgCallbackQuery `json:"callback_query"`
}

type tgResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (t *Telegram) call(ctx context.Context, method string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram %s: failed to read response: %w", method, err)
	}

	var wrapper tgResponse
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("telegram %s: failed to decode response: %w", method, err)
	}
	if !wrapper.OK {
		return fmt.Errorf("telegram %s: API error: %s", method, wrapper.Description)
	}
	if out != nil {
		if err := json.Unmarshal(wrapper.Result, out); err != nil {
			return fmt.Errorf("telegram %s: failed to decode result: %w", method, err)
		}
	}
	return nil
}

// ParseUpdate converts one Bot API update into an Event. Returns nil for
// update kinds the core does not handle.
func ParseUpdate(u tgUpdate) *Event {
	switch {
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		ev := &Event{
			ID:         uuid.New().String(),
			Type:       EventSelection,
			Identity:   cb.From.ID,
			Token:      cb.Data,
			CallbackID: cb.ID,
			Timestamp:  time.Now().UTC(),
		}
		if cb.Message != nil {
			ev.ChatID = cb.Message.Chat.ID
			ev.MessageID = cb.Message.MessageID
		}
		return ev
	case u.Message != nil && u.Message.From != nil:
		msg := u.Message
		ev := &Event{
			ID:        uuid.New().String(),
			Identity:  msg.From.ID,
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Timestamp: time.Now().UTC(),
		}
		if strings.HasPrefix(msg.Text, "/") {
			ev.Type = EventCommand
			ev.Command = strings.Fields(msg.Text)[0]
		} else {
			ev.Type = EventText
			ev.Text = msg.Text
		}
		return ev
	default:
		return nil
	}
}

// Poll runs the getUpdates loop until ctx is canceled, handing each parsed
// event to handle. Poll errors are logged and retried with a short backoff;
// the loop never terminates on its own.
func (t *Telegram) Poll(ctx context.Context, handle func(*Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := t.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("telegram: poll failed, retrying: %v", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= t.offset {
				t.offset = u.UpdateID + 1
			}
			if ev := ParseUpdate(u); ev != nil {
				handle(ev)
			}
		}
	}
}

func (t *Telegram) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	payload := map[string]interface{}{
		"offset":          t.offset,
		"timeout":         int(t.timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []tgUpdate
	if err := t.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

type tgInlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type tgInlineKeyboard struct {
	InlineKeyboard [][]tgInlineButton `json:"inline_keyboard"`
}

func keyboard(buttons []Button) *tgInlineKeyboard {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]tgInlineButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []tgInlineButton{{Text: b.Label, CallbackData: b.Token}})
	}
	return &tgInlineKeyboard{InlineKeyboard: rows}
}

// Send renders an outbound message. A set ReplaceMessageID becomes an
// editMessageText call; otherwise a new message is sent. Selections are
// acked via answerCallbackQuery first so the platform clears the spinner.
func (t *Telegram) Send(ctx context.Context, msg *Outbound) error {
	if msg.CallbackID != "" {
		ack := map[string]interface{}{"callback_query_id": msg.CallbackID}
		if err := t.call(ctx, "answerCallbackQuery", ack, nil); err != nil {
			log.Printf("telegram: failed to ack callback %s: %v", msg.CallbackID, err)
		}
	}

	payload := map[string]interface{}{
		"chat_id": msg.ChatID,
		"text":    msg.Text,
	}
	if kb := keyboard(msg.Buttons); kb != nil {
		payload["reply_markup"] = kb
	}

	method := "sendMessage"
	if msg.ReplaceMessageID != 0 {
		method = "editMessageText"
		payload["message_id"] = msg.ReplaceMessageID
	}
	return t.call(ctx, method, payload, nil)
}

var _ Sender = (*Telegram)(nil)
