package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whiteboard/internal/auth"
	"whiteboard/internal/logger"
)

type contextKey string

const (
	RequestIdKey  contextKey = "request_id"
	requestLogKey contextKey = "request_log"
)

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestId)

		ctx := context.WithValue(r.Context(), RequestIdKey, requestId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

// requestLog - то, что внутренние обработчики сообщают журналу запроса.
// Auth работает глубже Logging, поэтому пользователь передаётся через него.
type requestLog struct {
	claims *auth.Claims
}

func markUser(ctx context.Context, claims *auth.Claims) {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		rl.claims = claims
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.wroteHeader {
		return
	}
	sw.status = code
	sw.wroteHeader = true
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.WriteHeader(http.StatusOK)
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.size += n
	return n, err
}

// Logging пишет итог запроса. Опрос доски идёт на Debug, чтобы десятки
// клиентов не забивали журнал; изменения и ошибки видны всегда.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rl := &requestLog{}
		r = r.WithContext(context.WithValue(r.Context(), requestLogKey, rl))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client_ip", clientIP(r)),
			zap.Int("status", sw.status),
			zap.Int("bytes_written", sw.size),
			zap.Duration("ms", time.Since(start)),
		}
		if rl.claims != nil {
			fields = append(fields, zap.Int64("user_id", rl.claims.UserID), zap.String("user", rl.claims.Name))
		}

		level := zap.InfoLevel
		switch {
		case sw.status >= 500:
			level = zap.ErrorLevel
		case sw.status >= 400:
			level = zap.WarnLevel
		case isPoll(r):
			level = zap.DebugLevel
		}
		logger.Log(level, "HTTP_OUT: Завершение запроса", fields...)
	})
}
