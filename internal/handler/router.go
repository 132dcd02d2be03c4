package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/lumen-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/lumen-chat/backend/internal/handler/page"
	"github.com/zhouzirui/lumen-chat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/lumen-chat/backend/internal/middleware"
	chatService "github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/dispatch"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
	"github.com/zhouzirui/lumen-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, dispatcher *dispatch.Dispatcher, images *imagesvc.Processor, maxImageBytes int64, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"sessions":  chatSvc.Len(),
			"timestamp": time.Now().Unix(),
		})
	})

	pageHandler := page.New(dispatcher, images, maxImageBytes)
	chatHandler := chat.New(chatSvc, dispatcher, images, maxImageBytes)
	wsHandler := ws.New(dispatcher, images, maxImageBytes)

	r.Group(func(ui chi.Router) {
		ui.Use(middlewarePkg.Session(chatSvc))
		pageHandler.RegisterRoutes(ui)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.CORS(allowedOrigins))
		api.Use(middlewarePkg.Session(chatSvc))

		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
