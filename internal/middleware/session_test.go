package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chatservice "github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
)

func TestSessionCreatesAndReuses(t *testing.T) {
	svc := chatservice.NewService(time.Hour)
	var seen []string
	h := Session(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, SessionFrom(r.Context()).ID())
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := first.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	if len(second.Result().Cookies()) != 0 {
		t.Fatal("existing session should not be reissued")
	}
	if seen[0] != seen[1] {
		t.Fatalf("expected same session, got %s and %s", seen[0], seen[1])
	}
	if svc.Len() != 1 {
		t.Fatalf("expected one session, got %d", svc.Len())
	}
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	svc := chatservice.NewService(time.Hour)
	h := Session(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFrom(r.Context()) == nil {
			t.Fatal("expected a session in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	cookies := resp.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "stale" {
		t.Fatalf("expected a new session cookie, got %+v", cookies)
	}
}

func TestCORSPreflightAllowedOrigin(t *testing.T) {
	h := CORS([]string{"http://localhost:5173/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight should not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/ask", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatal("expected allowed origin to be echoed")
	}
	if resp.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials for an allowed origin")
	}
}

func TestCORSIgnoresUnlistedOrigin(t *testing.T) {
	reached := false
	h := CORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if !reached {
		t.Fatal("expected request to reach the handler")
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unlisted origin must not be allowed")
	}
	if resp.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("unlisted origin must not get credentials")
	}
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Origin", "https://any.example")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", resp.Header().Get("Access-Control-Allow-Origin"))
	}
	if resp.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard must not allow credentials")
	}
}
