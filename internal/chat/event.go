// Package chat holds the boundary types for events delivered by the chat
// bridge. Wire shapes are normalized here before they reach the pipeline.
package chat

import (
	"encoding/json"
	"strings"
)

// EventType identifies the kind of batch delivered by the chat bridge.
type EventType string

const (
	// EventNotify carries newly received messages. Only these are archived.
	EventNotify EventType = "notify"
	// EventAppend carries history sync messages.
	EventAppend EventType = "append"
	// EventGroupsUpdate carries group subject changes.
	EventGroupsUpdate EventType = "groups.update"
)

// groupSuffix marks a group chat jid.
const groupSuffix = "@g.us"

// Event is one batch delivered by the chat bridge.
type Event struct {
	Type     EventType     `json:"type"`
	Messages []WireMessage `json:"messages,omitempty"`
	Groups   []GroupInfo   `json:"groups,omitempty"`
}

// GroupInfo is the group metadata carried by a groups.update event.
type GroupInfo struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
}

// MessageKey identifies a message and the chat it belongs to.
type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	ID        string `json:"id,omitempty"`
	FromMe    bool   `json:"fromMe,omitempty"`
}

// WireMessage is a message as sent by the bridge. Message may be null.
type WireMessage struct {
	Key     MessageKey   `json:"key"`
	Message *MessageBody `json:"message"`
}

// MessageBody holds the possible message payloads. At most one is expected
// to be set; media payloads are kept raw since only their presence matters.
type MessageBody struct {
	Conversation        *string         `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedText   `json:"extendedTextMessage,omitempty"`
	ImageMessage        json.RawMessage `json:"imageMessage,omitempty"`
	VideoMessage        json.RawMessage `json:"videoMessage,omitempty"`
	DocumentMessage     json.RawMessage `json:"documentMessage,omitempty"`
	AudioMessage        json.RawMessage `json:"audioMessage,omitempty"`
	StickerMessage      json.RawMessage `json:"stickerMessage,omitempty"`
}

// ExtendedText is a text message with link preview or quote context.
type ExtendedText struct {
	Text *string `json:"text,omitempty"`
}

// MessageKind tags the normalized message shape.
type MessageKind int

const (
	KindEmpty MessageKind = iota
	KindConversation
	KindExtendedText
	KindMedia
)

func (k MessageKind) String() string {
	switch k {
	case KindConversation:
		return "conversation"
	case KindExtendedText:
		return "extended_text"
	case KindMedia:
		return "media"
	default:
		return "empty"
	}
}

// Message is the normalized form the pipeline works with.
type Message struct {
	ChatJID string
	ID      string
	Kind    MessageKind
	HasText bool
	Text    string
}

// IsGroup reports whether the message was sent to a group chat.
func (m Message) IsGroup() bool {
	return IsGroupJID(m.ChatJID)
}

// IsGroupJID reports whether jid names a group chat.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, groupSuffix)
}

// Normalize collapses the wire payload into a Message. Plain conversation
// text wins over extended text; everything else carries no text.
func (w WireMessage) Normalize() Message {
	msg := Message{
		ChatJID: w.Key.RemoteJID,
		ID:      w.Key.ID,
		Kind:    KindEmpty,
	}

	body := w.Message
	if body == nil {
		return msg
	}

	switch {
	case body.Conversation != nil:
		msg.Kind = KindConversation
		msg.Text = *body.Conversation
	case body.ExtendedTextMessage != nil && body.ExtendedTextMessage.Text != nil:
		msg.Kind = KindExtendedText
		msg.Text = *body.ExtendedTextMessage.Text
	case body.hasMedia():
		msg.Kind = KindMedia
	}

	msg.HasText = msg.Text != ""
	return msg
}

func (b *MessageBody) hasMedia() bool {
	return present(b.ImageMessage) || present(b.VideoMessage) ||
		present(b.DocumentMessage) || present(b.AudioMessage) ||
		present(b.StickerMessage)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
