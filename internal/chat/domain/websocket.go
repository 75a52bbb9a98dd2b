package domain

import "time"

// Action websocket request action
type Action string

const (
	// Typing websocket action typing
	Typing Action = "typing"
	// StopTyping websocket action stop_typing
	StopTyping Action = "stop_typing"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// GetOnlineUsers websocket action get_online_users
	GetOnlineUsers Action = "get_online_users"
)

// WSRequest websocket Request
type WSRequest struct {
	Action     string `json:"action"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
	ImageURL   string `json:"image_url"`
}

// EventType outbound push type
type EventType string

const (
	// EventOnlineUsers full set of online member ids
	EventOnlineUsers EventType = "online-users"
	// EventTyping a peer started typing to the receiver
	EventTyping EventType = "typing"
	// EventStopTyping a peer stopped typing to the receiver
	EventStopTyping EventType = "stop-typing"
	// EventUserDisconnected a member's last connection closed
	EventUserDisconnected EventType = "user-disconnected"
	// EventNewMessage a message addressed to the receiver was persisted
	EventNewMessage EventType = "new-message"
	// EventMessageSent ack to the socket that sent a message
	EventMessageSent EventType = "message-sent"
	// EventError request on this socket failed
	EventError EventType = "error"
)

// Event one outbound push, fields are filled per type
type Event struct {
	Type       EventType  `json:"type"`
	UserIDs    []string   `json:"userIds,omitempty"`
	FromUserID string     `json:"fromUserId,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
	Message    *Message   `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// OnlineUsersEvent build online-users
func OnlineUsersEvent(userIDs []string) Event {
	return Event{Type: EventOnlineUsers, UserIDs: userIDs}
}

// TypingEvent build typing / stop-typing
func TypingEvent(fromUserID string, isStarting bool) Event {
	t := EventStopTyping
	if isStarting {
		t = EventTyping
	}
	return Event{Type: t, FromUserID: fromUserID}
}

// UserDisconnectedEvent build user-disconnected
func UserDisconnectedEvent(userID string, lastSeen time.Time) Event {
	return Event{Type: EventUserDisconnected, UserID: userID, LastSeen: &lastSeen}
}

// NewMessageEvent build new-message
func NewMessageEvent(msg *Message) Event {
	return Event{Type: EventNewMessage, Message: msg}
}

// MessageSentEvent build message-sent
func MessageSentEvent(msg *Message) Event {
	return Event{Type: EventMessageSent, Message: msg}
}

// ErrorEvent build error
func ErrorEvent(errMsg string) Event {
	return Event{Type: EventError, Error: errMsg}
}
