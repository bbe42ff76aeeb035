package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/logger"
)

type Handler struct {
	Board BoardService
	Users UserService
}

func NewHandler(board BoardService, users UserService) *Handler {
	return &Handler{
		Board: board,
		Users: users,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.Board.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("error", err.Error()))
		return
	}
	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("time", time.Now().UTC().Format(time.RFC3339)))
}

func logOut(msg string, start time.Time, status int, fields ...zap.Field) {
	fields = append(fields,
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", status))
	logger.Info(msg, fields...)
}
