package middleware

import (
	"context"
	"net/http"

	chatservice "github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
	"github.com/zhouzirui/lumen-chat/backend/pkg/logger"
)

// SessionCookie 保存会话 ID 的 Cookie 名称。
const SessionCookie = "lumen_session"

type sessionKey struct{}

// Session 为每个请求加载或创建绑定在 Cookie 上的会话。
func Session(svc *chatservice.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var session *chatservice.Session
			if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
				session, _ = svc.GetSession(ctx, cookie.Value)
			}

			if session == nil {
				session = svc.CreateSession(ctx)
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    session.ID(),
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Debugf("[session] created session=%s", session.ID())
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, session)))
		})
	}
}

// WithSession 将会话写入 context。
func WithSession(ctx context.Context, session *chatservice.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFrom 取出当前请求的会话，未经过中间件时返回 nil。
func SessionFrom(ctx context.Context) *chatservice.Session {
	session, _ := ctx.Value(sessionKey{}).(*chatservice.Session)
	return session
}

// ExpireSessionCookie 让浏览器丢弃会话 Cookie。
func ExpireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
