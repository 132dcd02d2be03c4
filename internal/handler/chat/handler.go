package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lumen-chat/backend/internal/handler/request"
	"github.com/zhouzirui/lumen-chat/backend/internal/middleware"
	"github.com/zhouzirui/lumen-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/dispatch"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
	"github.com/zhouzirui/lumen-chat/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc       *chatService.Service
	dispatcher    *dispatch.Dispatcher
	images        *imagesvc.Processor
	maxImageBytes int64
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, dispatcher *dispatch.Dispatcher, images *imagesvc.Processor, maxImageBytes int64) *Handler {
	return &Handler{
		chatSvc:       chatSvc,
		dispatcher:    dispatcher,
		images:        images,
		maxImageBytes: maxImageBytes,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Delete("/session", h.handleEndSession)
	r.Post("/ask", h.handleAsk)
	r.Get("/history", h.handleGetHistory)
	r.Delete("/history", h.handleClearHistory)
	r.Post("/theme", h.handleToggleTheme)
}

// AskResponse 是 /api/ask 成功时的返回体
type AskResponse struct {
	Response   string           `json:"response"`
	Variant    dispatch.Variant `json:"variant"`
	Transcript []chat.Entry     `json:"transcript"`
}

// handleGetSession 返回当前会话快照
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

// handleEndSession 结束会话并清除 Cookie
func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	if err := h.chatSvc.EndSession(r.Context(), session.ID()); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	middleware.ExpireSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleAsk 分发用户输入并记录对话
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())

	req, err := request.ReadAsk(w, r, h.images, h.maxImageBytes)
	if err != nil {
		utils.RespondError(w, request.StatusFor(err), request.UserMessage(err))
		return
	}

	result := h.dispatcher.Ask(r.Context(), session, req)
	if !result.OK() {
		utils.RespondError(w, request.StatusFor(result.Err), request.UserMessage(result.Err))
		return
	}

	utils.RespondJSON(w, http.StatusOK, AskResponse{
		Response:   result.Text,
		Variant:    result.Variant,
		Transcript: session.Transcript(),
	})
}

// handleGetHistory 返回对话记录
func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{"transcript": session.Transcript()})
}

// handleClearHistory 清空对话记录
func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleTheme 切换明暗主题
func (h *Handler) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"darkMode": session.ToggleTheme()})
}
