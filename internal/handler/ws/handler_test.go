package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/lumen-chat/backend/internal/config"
	"github.com/zhouzirui/lumen-chat/backend/internal/middleware"
	chatservice "github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/dispatch"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
)

type echoGenerator struct{}

func (echoGenerator) GenerateText(_ context.Context, text string) (string, error) {
	return "echo: " + text, nil
}

func (echoGenerator) GenerateImage(context.Context, *imagesvc.Image) (string, error) {
	return "an image", nil
}

func (echoGenerator) GenerateMultimodal(_ context.Context, text string, _ *imagesvc.Image) (string, error) {
	return "image and " + text, nil
}

type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func newHandler() *Handler {
	return New(dispatch.New(echoGenerator{}), imagesvc.NewProcessor(config.ImageConfig{}), 1<<20)
}

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	chatSvc := chatservice.NewService(time.Hour)
	r := chi.NewRouter()
	r.Use(middleware.Session(chatSvc))
	newHandler().RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg map[string]any) frame {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write err: %v", err)
	}
	var got frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read err: %v", err)
	}
	return got
}

func TestWebSocketAskAndHistory(t *testing.T) {
	conn := dial(t)

	got := roundTrip(t, conn, map[string]any{"type": TypeAsk, "data": map[string]string{"text": "Hello"}})
	if got.Type != TypeResponse {
		t.Fatalf("expected response frame, got %s: %s", got.Type, got.Data)
	}
	var data ResponseData
	_ = json.Unmarshal(got.Data, &data)
	if data.Response != "echo: Hello" || data.Variant != dispatch.VariantText {
		t.Fatalf("unexpected response %+v", data)
	}

	history := roundTrip(t, conn, map[string]any{"type": TypeHistory})
	if !strings.Contains(string(history.Data), `"message":"Hello"`) {
		t.Fatalf("history missing user entry: %s", history.Data)
	}

	cleared := roundTrip(t, conn, map[string]any{"type": TypeClear})
	if !strings.Contains(string(cleared.Data), `"transcript":[]`) {
		t.Fatalf("expected empty transcript, got %s", cleared.Data)
	}
}

func TestWebSocketEmptyAskReturnsError(t *testing.T) {
	conn := dial(t)

	got := roundTrip(t, conn, map[string]any{"type": TypeAsk, "data": map[string]string{"text": ""}})
	if got.Type != TypeError {
		t.Fatalf("expected error frame, got %s", got.Type)
	}
	var data ErrorData
	_ = json.Unmarshal(got.Data, &data)
	if data.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 status, got %d", data.Status)
	}
}

func TestHandleMessageThemeAndPing(t *testing.T) {
	h := newHandler()
	session := chatservice.NewService(0).CreateSession(context.Background())

	theme := h.handleMessage(context.Background(), session, inboundMessage{Type: TypeTheme})
	if theme.Type != TypeTheme || !session.DarkMode() {
		t.Fatalf("expected theme toggled, got %+v", theme)
	}

	pong := h.handleMessage(context.Background(), session, inboundMessage{Type: TypePing})
	if pong.Type != TypePong {
		t.Fatalf("expected pong, got %s", pong.Type)
	}

	unknown := h.handleMessage(context.Background(), session, inboundMessage{Type: "dance"})
	if unknown.Type != TypeError {
		t.Fatalf("expected error for unknown type, got %s", unknown.Type)
	}
}
