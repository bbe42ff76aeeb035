package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"whiteboard/internal/auth"
	"whiteboard/internal/logger"
)

type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Auth пропускает запрос только с действительным bearer-токеном:
// без токена 401, с недействительным или просроченным 403
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
			if err != nil {
				status := http.StatusForbidden
				if errors.Is(err, auth.ErrMissingToken) {
					status = http.StatusUnauthorized
				}
				deny(w, r, status, err)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				deny(w, r, http.StatusForbidden, err)
				return
			}

			markUser(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int, err error) {
	logger.Warn("HTTP: Отказ в доступе",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("http_status", status),
		zap.Error(err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      "unauthorized",
		"message":    err.Error(),
		"request_id": GetRequestID(r.Context()),
	})
}
