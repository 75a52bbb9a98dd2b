package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"text only", Message{SenderID: "a", ReceiverID: "b", Text: "hi"}, false},
		{"image only", Message{SenderID: "a", ReceiverID: "b", ImageURL: "https://cdn.example.com/p.png"}, false},
		{"text and image", Message{SenderID: "a", ReceiverID: "b", Text: "look", ImageURL: "https://cdn.example.com/p.png"}, false},
		{"no content", Message{SenderID: "a", ReceiverID: "b"}, true},
		{"blank text", Message{SenderID: "a", ReceiverID: "b", Text: "   "}, true},
		{"missing sender", Message{ReceiverID: "b", Text: "hi"}, true},
		{"missing receiver", Message{SenderID: "a", Text: "hi"}, true},
		{"relative image url", Message{SenderID: "a", ReceiverID: "b", ImageURL: "p.png"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMessage_Between(t *testing.T) {
	msg := Message{SenderID: "a", ReceiverID: "b"}
	assert.True(t, msg.Between("a", "b"))
	assert.True(t, msg.Between("b", "a"))
	assert.False(t, msg.Between("a", "c"))
}

func TestConnection_Transition(t *testing.T) {
	conn := NewConnection("a", "c1", nil)
	assert.Equal(t, StateConnecting, conn.State())
	assert.False(t, conn.Transition(StateActive, StateDisconnected))
	assert.True(t, conn.Transition(StateConnecting, StateActive))
	assert.True(t, conn.Transition(StateActive, StateDisconnected))
	assert.Equal(t, "disconnected", conn.State().String())
}
