package chat

import (
	"encoding/json"

	"gatherchat/internal/app/delivery"
	"gatherchat/internal/app/message"
	"gatherchat/internal/app/presence"
)

// Inbound frame types.
const (
	FrameSendMessage = "sendMessage"
	FrameMarkSeen    = "markSeen"
)

// Outbound event types in addition to the presence ones.
const (
	EventConfirm presence.EventType = "confirm"
	EventError   presence.EventType = "error"
)

// InboundFrame is one client-to-server websocket frame.
type InboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TempID  string          `json:"tempId,omitempty"`
}

// SendMessagePayload is the payload of a sendMessage frame.
type SendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	Image      string `json:"image"`
}

// MarkSeenPayload is the payload of a markSeen frame.
type MarkSeenPayload struct {
	MessageID string `json:"messageId"`
}

// ConfirmPayload acknowledges a sendMessage frame.
type ConfirmPayload struct {
	TempID  string           `json:"tempId,omitempty"`
	Message message.Message  `json:"message"`
	Outcome delivery.Outcome `json:"outcome"`
}

// ErrorPayload reports a rejected frame.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}
