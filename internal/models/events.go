// Package models defines transport-neutral inbound events and outbound emissions.
package models

import (
	"strconv"
	"strings"
	"time"
)

// UserIdentity is the transport-provided identity of a chat user.
type UserIdentity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// FullName joins first and last name.
func (u UserIdentity) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName returns the best human-readable label for the user.
func (u UserIdentity) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// EventKind classifies an inbound event.
type EventKind string

const (
	EventCommand    EventKind = "command"
	EventButton     EventKind = "button"
	EventText       EventKind = "text"
	EventAttachment EventKind = "attachment"
)

// Event is one inbound interaction, abstracted from the chat protocol.
//
// For commands the payload is the command name without the slash, for buttons
// the callback data, for text the message body and for attachments an opaque
// reference such as "photo:<fileID>".
type Event struct {
	UpdateID   int64        `json:"update_id"`
	UserID     int64        `json:"user_id"`
	ChatID     int64        `json:"chat_id"`
	MessageID  int          `json:"message_id,omitempty"`
	CallbackID string       `json:"callback_id,omitempty"`
	Identity   UserIdentity `json:"identity"`
	Kind       EventKind    `json:"kind"`
	Payload    string       `json:"payload"`
}

// Choice is one selectable option rendered by the transport.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Emission is an outbound message produced for the transport to render.
type Emission struct {
	Text    string   `json:"text"`
	Choices []Choice `json:"choices,omitempty"`
	// Columns is the number of choices per keyboard row; zero means one per row.
	Columns int `json:"columns,omitempty"`
	// EditPrior asks the transport to replace the message the user interacted with.
	EditPrior       bool `json:"edit_prior,omitempty"`
	TargetMessageID int  `json:"target_message_id,omitempty"`
	Markdown        bool `json:"markdown,omitempty"`
}

// Attachment reference prefixes.
const (
	AttachmentPhoto    = "photo"
	AttachmentDocument = "document"
)

// AttachmentRef builds an opaque attachment reference.
func AttachmentRef(kind, fileID string) string {
	return kind + ":" + fileID
}

// ParseAttachmentRef splits a reference built by AttachmentRef.
func ParseAttachmentRef(ref string) (kind, fileID string, ok bool) {
	kind, fileID, ok = strings.Cut(ref, ":")
	if !ok || fileID == "" {
		return "", "", false
	}
	return kind, fileID, true
}

// NotificationClass selects which staff destinations receive a notification.
type NotificationClass string

const (
	NotifyStaffManager NotificationClass = "staff_manager"
	NotifyStaffAdmin   NotificationClass = "staff_admin"
)

// NotificationMessage is a rendered staff alert. Delivery is fire-and-forget.
type NotificationMessage struct {
	ID          string            `json:"id"`
	Class       NotificationClass `json:"class"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Attachments []string          `json:"attachments,omitempty"`
}

// UnansweredQuestion is a free-text message no responder could answer.
type UnansweredQuestion struct {
	ID       int64        `json:"id"`
	UserID   int64        `json:"user_id"`
	Identity UserIdentity `json:"identity"`
	Text     string       `json:"text"`
	AskedAt  time.Time    `json:"asked_at"`
}
