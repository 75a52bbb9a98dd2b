package app

import (
	"context"
	"errors"
	"time"

	"realtime_chat_service/internal/chat/domain"
	memberdomain "realtime_chat_service/internal/member/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MemberDirectory 側欄需要的聯絡人清單
type MemberDirectory interface {
	ListExcept(ctx context.Context, memberID string) ([]memberdomain.Member, error)
}

// MessageHandler REST surface of the coordinator
type MessageHandler struct {
	coordinator *SessionCoordinator
	members     MemberDirectory
}

// NewMessageHandler create MessageHandler
func NewMessageHandler(coordinator *SessionCoordinator, members MemberDirectory) *MessageHandler {
	return &MessageHandler{
		coordinator: coordinator,
		members:     members,
	}
}

// SendMessageRequest body of POST /api/messages/send/:id
type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// SidebarUser one contact in the sidebar
type SidebarUser struct {
	ID         string     `json:"_id"`
	FullName   string     `json:"fullName"`
	ProfilePic string     `json:"profilePic"`
	Online     bool       `json:"online"`
	LastSeen   *time.Time `json:"lastSeen"`
}

// LastSeenResponse body of GET /api/users/:id/last-seen
type LastSeenResponse struct {
	UserID   string    `json:"user_id"`
	LastSeen time.Time `json:"last_seen"`
}

// GetUsersForSidebar list every other member with presence
// @Summary Sidebar contacts
// @Description Every member except the caller, with online flag and last seen
// @Tags Messages
// @Produce json
// @Success 200 {array} SidebarUser
// @Failure 503 {object} map[string]string
// @Router /api/messages/users [get]
func (h *MessageHandler) GetUsersForSidebar(c *fiber.Ctx) error {
	memberID := middlewares.MemberID(c)
	members, err := h.members.ListExcept(c.UserContext(), memberID)
	if err != nil {
		err = errprocess.Wrap(err, "list sidebar members", zap.String("memberID", memberID))
		return writeError(c, errors.Join(domain.ErrTransientStore, err))
	}

	users := make([]SidebarUser, 0, len(members))
	for _, m := range members {
		users = append(users, SidebarUser{
			ID:         m.MemberID,
			FullName:   m.FullName,
			ProfilePic: m.ProfilePic,
			Online:     h.coordinator.IsOnline(m.MemberID),
			LastSeen:   m.LastSeen,
		})
	}
	return c.Status(fiber.StatusOK).JSON(users)
}

// GetMessages conversation history
// @Summary Conversation history
// @Description Messages between the caller and :id in either direction, oldest first
// @Tags Messages
// @Produce json
// @Param id path string true "Peer member id"
// @Success 200 {array} domain.Message
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/messages/{id} [get]
func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	messages, err := h.coordinator.GetHistory(c.UserContext(), middlewares.MemberID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(messages)
}

// SendMessage persist and deliver a message
// @Summary Send a message
// @Description Persists the message and pushes new-message to the receiver's live connections
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Receiver member id"
// @Param body body SendMessageRequest true "text and/or image url"
// @Success 201 {object} domain.Message
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/messages/send/{id} [post]
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	msg, err := h.coordinator.SendMessage(c.UserContext(), middlewares.MemberID(c), c.Params("id"), req.Text, req.Image)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetLastSeen last seen of a member
// @Summary Last seen
// @Tags Users
// @Produce json
// @Param id path string true "Member id"
// @Success 200 {object} LastSeenResponse
// @Failure 404 {object} map[string]string
// @Router /api/users/{id}/last-seen [get]
func (h *MessageHandler) GetLastSeen(c *fiber.Ctx) error {
	userID := c.Params("id")
	seenAt, err := h.coordinator.GetLastSeen(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(LastSeenResponse{UserID: userID, LastSeen: seenAt})
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrTransientStore):
		status = fiber.StatusServiceUnavailable
	}
	if status >= fiber.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
