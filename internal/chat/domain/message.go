package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Message 一對一的私訊, 建立後不可修改
type Message struct {
	ID         string    `bson:"id" json:"id"`
	SenderID   string    `bson:"sender_id" json:"senderId"`
	ReceiverID string    `bson:"receiver_id" json:"receiverId"`
	Text       string    `bson:"text,omitempty" json:"text,omitempty"`
	ImageURL   string    `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// Validate checks identities and that at least one content field is present
func (m *Message) Validate() error {
	if strings.TrimSpace(m.SenderID) == "" {
		return fmt.Errorf("%w: sender id is required", ErrValidation)
	}
	if strings.TrimSpace(m.ReceiverID) == "" {
		return fmt.Errorf("%w: receiver id is required", ErrValidation)
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.ImageURL) == "" {
		return fmt.Errorf("%w: message needs text or an image", ErrValidation)
	}
	if m.ImageURL != "" {
		u, err := url.ParseRequestURI(m.ImageURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%w: malformed image url %q", ErrValidation, m.ImageURL)
		}
	}
	return nil
}

// Between reports whether the message belongs to the conversation of a and b, in either direction
func (m *Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
