package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	errClientClosed   = errors.New("websocket client closed")
	errSendBufferFull = errors.New("websocket send buffer full")
)

// ChatWebsocketHandler 每條 websocket 對應 coordinator 上的一條連線
type ChatWebsocketHandler struct {
	coordinator *SessionCoordinator
	cfg         config.WebsocketConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(coordinator *SessionCoordinator, cfg config.WebsocketConfig) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		coordinator: coordinator,
		cfg:         cfg.WithDefaults(),
	}
}

// HandleConnection 是 WebSocket 連線的進入點, 回傳時連線已從 registry 移除
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, ok := conn.Locals(middlewares.TokenMemberID).(string)
	if !ok || memberID == "" {
		logger.Log.Warn("websocket without member identity", zap.String("remote", conn.RemoteAddr().String()))
		closeWebSocketConnection(conn, websocket.ClosePolicyViolation, "unauthenticated")
		return
	}

	client := newWSClient(conn, h.cfg)
	session := domain.NewConnection(memberID, uuid.New().String(), client)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		client.writePump()
	}()

	defer func() {
		if err := h.coordinator.Disconnect(ctx, memberID, session.ConnectionID); err != nil {
			logger.Log.Error("websocket disconnect", zap.String("userID", memberID), zap.Error(err))
		}
		client.close()
		// fiber 在 handler 回傳後會回收 conn, 必須等 write pump 結束
		<-pumpDone
		conn.Close()
		logger.Log.Info("websocket close", zap.String("userID", memberID), zap.String("connectionID", session.ConnectionID))
	}()

	if err := h.coordinator.Connect(session); err != nil {
		logger.Log.Error("websocket connect", zap.String("userID", memberID), zap.Error(err))
		return
	}

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(h.cfg.RateLimit), h.cfg.RateBurst)
	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			// 檢查是否為 Close 正常結束
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("userID", memberID), zap.Error(err))
			} else {
				//直接斷線 1006
				logger.Log.Info("websocket read error", zap.String("userID", memberID), zap.Error(err))
			}
			return
		}
		if !limiter.Allow() {
			h.sendError(session, "rate limit exceeded")
			continue
		}
		h.execWebsocketAction(ctx, session, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, session *domain.Connection, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, session, msg)
	default:
		h.sendError(session, "only text frames are supported")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, session *domain.Connection, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(session, "malformed request")
		return
	}
	receiverID := strings.TrimSpace(req.ReceiverID)

	// sender 一律取自 token, 不信任 payload
	switch domain.Action(req.Action) {
	case domain.Typing, domain.StopTyping:
		if receiverID == "" {
			h.sendError(session, "receiver_id is required")
			return
		}
		h.coordinator.SendTyping(session.UserID, receiverID, domain.Action(req.Action) == domain.Typing)

	case domain.SendMessage:
		message, err := h.coordinator.SendMessage(ctx, session.UserID, receiverID, req.Text, req.ImageURL)
		if err != nil {
			logger.Log.Error("websocket err ", zap.String("MemberID", session.UserID), zap.String("Action", req.Action), zap.Error(err))
			h.sendError(session, err.Error())
			return
		}
		h.send(session, domain.MessageSentEvent(message))

	case domain.GetOnlineUsers:
		h.send(session, domain.OnlineUsersEvent(h.coordinator.OnlineUserIDs()))

	default:
		h.sendError(session, "unknown action")
	}
}

func (h *ChatWebsocketHandler) send(session *domain.Connection, event domain.Event) {
	if err := session.Send(event); err != nil {
		logger.Log.Debug("reply dropped", zap.String("userID", session.UserID), zap.Error(err))
	}
}

func (h *ChatWebsocketHandler) sendError(session *domain.Connection, errorMsg string) {
	h.send(session, domain.ErrorEvent(errorMsg))
}

// wsClient domain.Sender over a buffered channel, only writePump touches the socket for writes
type wsClient struct {
	conn      *websocket.Conn
	cfg       config.WebsocketConfig
	send      chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn, cfg config.WebsocketConfig) *wsClient {
	return &wsClient{
		conn: conn,
		cfg:  cfg,
		send: make(chan domain.Event, cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

// Send never blocks
func (c *wsClient) Send(event domain.Event) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- event:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteJSON(event); err != nil {
				logger.Log.Debug("write message error", zap.Error(err))
				c.close()
				// 讓 read loop 也跟著結束
				c.conn.Close()
				return
			}
		case <-ticker.C:
			// 定期發送 Ping
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.Debug("ping error", zap.Error(err))
				c.close()
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func closeWebSocketConnection(conn *websocket.Conn, code int, reason string) {
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
		logger.Log.Debug("Failed to send CloseMessage", zap.Error(err))
	}
	conn.Close()
}
