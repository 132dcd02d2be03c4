package page

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lumen-chat/backend/internal/handler/request"
	"github.com/zhouzirui/lumen-chat/backend/internal/middleware"
	"github.com/zhouzirui/lumen-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/dispatch"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
	"github.com/zhouzirui/lumen-chat/backend/pkg/logger"
)

const pageTitle = "ChatBot using a hosted LLM"

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Handler 渲染单页界面并处理表单提交
type Handler struct {
	dispatcher    *dispatch.Dispatcher
	images        *imagesvc.Processor
	maxImageBytes int64
}

// New 创建页面处理器
func New(dispatcher *dispatch.Dispatcher, images *imagesvc.Processor, maxImageBytes int64) *Handler {
	return &Handler{
		dispatcher:    dispatcher,
		images:        images,
		maxImageBytes: maxImageBytes,
	}
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/ask", h.handleAsk)
	r.Post("/theme", h.handleToggleTheme)
	r.Post("/clear", h.handleClear)
}

type view struct {
	Title        string
	DarkMode     bool
	Input        string
	ImagePreview template.URL
	Response     string
	Error        string
	Transcript   []chat.Entry
}

func newView(session *chatService.Session) view {
	snapshot := session.Snapshot()
	return view{
		Title:      pageTitle,
		DarkMode:   snapshot.DarkMode,
		Transcript: snapshot.Transcript,
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, newView(middleware.SessionFrom(r.Context())))
}

// handleAsk 处理表单提交并直接渲染结果页
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())

	req, err := request.ReadAsk(w, r, h.images, h.maxImageBytes)
	if err != nil {
		v := newView(session)
		v.Error = request.UserMessage(err)
		h.render(w, request.StatusFor(err), v)
		return
	}

	result := h.dispatcher.Ask(r.Context(), session, req)

	v := newView(session)
	v.Input = req.Text
	if req.Image != nil {
		// data: URLs are otherwise rewritten by html/template
		v.ImagePreview = template.URL(req.Image.DataURL())
	}

	status := http.StatusOK
	if result.OK() {
		v.Response = result.Text
	} else {
		v.Error = request.UserMessage(result.Err)
		status = request.StatusFor(result.Err)
	}
	h.render(w, status, v)
}

func (h *Handler) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	middleware.SessionFrom(r.Context()).ToggleTheme()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	middleware.SessionFrom(r.Context()).Clear()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, status int, v view) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, v); err != nil {
		logger.Errorf("[page] failed to render template: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
