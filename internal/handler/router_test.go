package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/lumen-chat/backend/internal/config"
	chatservice "github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/dispatch"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
)

type fixedGenerator struct{}

func (fixedGenerator) GenerateText(context.Context, string) (string, error) { return "Hi there", nil }

func (fixedGenerator) GenerateImage(context.Context, *imagesvc.Image) (string, error) {
	return "an image", nil
}

func (fixedGenerator) GenerateMultimodal(context.Context, string, *imagesvc.Image) (string, error) {
	return "both", nil
}

func newTestRouter() http.Handler {
	chatSvc := chatservice.NewService(time.Hour)
	images := imagesvc.NewProcessor(config.ImageConfig{})
	return NewRouter(chatSvc, dispatch.New(fixedGenerator{}), images, 1<<20, nil)
}

func TestHealthz(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestPageAndAPIShareSession(t *testing.T) {
	r := newTestRouter()

	pageResp := httptest.NewRecorder()
	r.ServeHTTP(pageResp, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := pageResp.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected session cookie, got %d", len(cookies))
	}

	askReq := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"text":"Hello"}`))
	askReq.Header.Set("Content-Type", "application/json")
	askReq.AddCookie(cookies[0])
	r.ServeHTTP(httptest.NewRecorder(), askReq)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if !strings.Contains(resp.Body.String(), "<strong>Bot:</strong> Hi there") {
		t.Fatal("page should show the exchange made through the API")
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
