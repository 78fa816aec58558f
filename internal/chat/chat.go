// Package chat defines the transport boundary: inbound events tagged with an
// operator identity and outbound presentation requests, plus the Telegram
// implementation. The router only sees these types, never the wire format.
package chat

import (
	"context"
	"time"
)

// EventType classifies an inbound event.
type EventType string

const (
	EventCommand   EventType = "command"   // slash command, e.g. "/start"
	EventSelection EventType = "selection" // button press carrying an opaque token
	EventText      EventType = "text"      // free-text message
)

// Event is one inbound unit of work.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Identity   int64     `json:"identity"`
	ChatID     int64     `json:"chat_id"`
	MessageID  int       `json:"message_id,omitempty"` // message carrying the pressed button
	Command    string    `json:"command,omitempty"`
	Token      string    `json:"token,omitempty"`
	Text       string    `json:"text,omitempty"`
	CallbackID string    `json:"callback_id,omitempty"` // transport ack handle for selections
	Timestamp  time.Time `json:"timestamp"`
}

// Button is one labeled selectable action. Token is the opaque payload the
// transport returns in the resulting selection event.
type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Outbound describes a message to render. When ReplaceMessageID is set the
// transport edits that rendered message in place instead of sending a new
// one. Buttons render one per row.
type Outbound struct {
	ID               string   `json:"id"`
	ChatID           int64    `json:"chat_id"`
	ReplaceMessageID int      `json:"replace_message_id,omitempty"`
	Text             string   `json:"text"`
	Buttons          []Button `json:"buttons,omitempty"`
	CallbackID       string   `json:"callback_id,omitempty"` // ack the originating selection
}

// Sender delivers outbound messages to the operator.
type Sender interface {
	Send(ctx context.Context, msg *Outbound) error
}
