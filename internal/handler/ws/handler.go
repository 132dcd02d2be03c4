package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/lumen-chat/backend/internal/handler/request"
	"github.com/zhouzirui/lumen-chat/backend/internal/middleware"
	"github.com/zhouzirui/lumen-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/dispatch"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
	"github.com/zhouzirui/lumen-chat/backend/pkg/logger"
)

// 客户端与服务端的消息类型
const (
	TypeAsk      = "ask"
	TypeClear    = "clear"
	TypeTheme    = "theme"
	TypeHistory  = "history"
	TypePing     = "ping"
	TypePong     = "pong"
	TypeResponse = "response"
	TypeError    = "error"
)

// base64 inflates payloads by 4/3, plus room for the JSON envelope
const frameSlack = 64 << 10

// Handler WebSocket 对话处理器，每个连接绑定握手时的会话
type Handler struct {
	dispatcher    *dispatch.Dispatcher
	images        *imagesvc.Processor
	maxImageBytes int64
	upgrader      websocket.Upgrader
}

// New 创建WebSocket处理器
func New(dispatcher *dispatch.Dispatcher, images *imagesvc.Processor, maxImageBytes int64) *Handler {
	return &Handler{
		dispatcher:    dispatcher,
		images:        images,
		maxImageBytes: maxImageBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ResponseData 回复帧的内容
type ResponseData struct {
	Response string           `json:"response"`
	Variant  dispatch.Variant `json:"variant"`
}

// ErrorData 错误帧的内容
type ErrorData struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	if session == nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.maxImageBytes*4/3 + frameSlack)
	log := logger.WithFields(logrus.Fields{"session": session.ID()})
	log.Info("[ws] connection opened")

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("[ws] read failed: %v", err)
			}
			log.Info("[ws] connection closed")
			return
		}

		reply := h.handleMessage(r.Context(), session, msg)
		if err := conn.WriteJSON(reply); err != nil {
			log.Warnf("[ws] write failed: %v", err)
			return
		}
	}
}

// handleMessage 同步处理一条消息，返回要写回的帧
func (h *Handler) handleMessage(ctx context.Context, session *chatService.Session, msg inboundMessage) outgoingMessage {
	switch msg.Type {
	case TypeAsk:
		return h.handleAsk(ctx, session, msg.Data)
	case TypeClear:
		session.Clear()
		return newMessage(session, TypeHistory, map[string][]chat.Entry{"transcript": session.Transcript()})
	case TypeHistory:
		return newMessage(session, TypeHistory, map[string][]chat.Entry{"transcript": session.Transcript()})
	case TypeTheme:
		return newMessage(session, TypeTheme, map[string]bool{"darkMode": session.ToggleTheme()})
	case TypePing:
		return newMessage(session, TypePong, nil)
	default:
		return newMessage(session, TypeError, ErrorData{Message: "unknown message type: " + msg.Type, Status: http.StatusBadRequest})
	}
}

func (h *Handler) handleAsk(ctx context.Context, session *chatService.Session, data json.RawMessage) outgoingMessage {
	var payload request.AskPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return errorMessage(session, request.ErrInvalidBody)
		}
	}

	req, err := request.FromPayload(payload, h.images)
	if err != nil {
		return errorMessage(session, err)
	}

	result := h.dispatcher.Ask(ctx, session, req)
	if !result.OK() {
		return errorMessage(session, result.Err)
	}

	return newMessage(session, TypeResponse, ResponseData{Response: result.Text, Variant: result.Variant})
}

func errorMessage(session *chatService.Session, err error) outgoingMessage {
	return newMessage(session, TypeError, ErrorData{Message: request.UserMessage(err), Status: request.StatusFor(err)})
}

func newMessage(session *chatService.Session, msgType string, data interface{}) outgoingMessage {
	return outgoingMessage{
		Type:      msgType,
		SessionID: session.ID(),
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}
