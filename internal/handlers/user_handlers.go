package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/auth"
	"whiteboard/internal/datetime"
	"whiteboard/internal/handlers/dto"
	"whiteboard/internal/logger"
	"whiteboard/internal/service"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.LoginRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	session, err := h.Users.Login(r.Context(), request.Email, request.Password)
	if err != nil {
		handleServiceError(w, r, err, "login")
		return
	}

	logOut("HTTP_OUT: Вход выполнен", start, http.StatusOK, zap.Int64("user_id", session.User.ID))
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     session.Token,
		ExpiresAt: datetime.From(&session.ExpiresAt),
		User:      dto.FromUser(session.User),
	})
}

// Register - самостоятельная регистрация, без токена
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.RegisterRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.Users.Register(r.Context(), request.Name, request.Email, request.Password)
	if err != nil {
		handleServiceError(w, r, err, "register")
		return
	}

	logOut("HTTP_OUT: Пользователь зарегистрирован", start, http.StatusCreated, zap.Int64("user_id", created.ID))
	writeJSON(w, http.StatusCreated, dto.FromUser(created))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "list_users")
		return
	}

	logOut("HTTP_OUT: Пользователи получены", start, http.StatusOK, zap.Int("count", len(users)))
	writeJSON(w, http.StatusOK, dto.FromUserList(users))
}

// UpdateStatus меняет статус только владельцу токена
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}
	var request dto.UpdateStatusRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.Users.SetStatus(r.Context(), claims.UserID, request.Status)
	if err != nil {
		handleServiceError(w, r, err, "update_status")
		return
	}

	logOut("HTTP_OUT: Статус обновлён", start, http.StatusOK,
		zap.Int64("user_id", updated.ID),
		zap.String("status", string(updated.Status)))
	writeJSON(w, http.StatusOK, dto.FromUser(updated))
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var request dto.UpdateUserRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.Users.UpdateUser(r.Context(), id, request.Patch())
	if err != nil {
		handleServiceError(w, r, err, "update_user")
		return
	}

	logOut("HTTP_OUT: Пользователь обновлён", start, http.StatusOK, zap.Int64("user_id", updated.ID))
	writeJSON(w, http.StatusOK, dto.FromUser(updated))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Users.DeleteUser(r.Context(), claims.UserID, id); err != nil {
		handleServiceError(w, r, err, "delete_user")
		return
	}

	logOut("HTTP_OUT: Пользователь удалён", start, http.StatusNoContent, zap.Int64("user_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	limit := service.DefaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "limit"),
				zap.String("value", raw),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, "неверное значение limit")
			return
		}
		limit = parsed
	}

	entries, err := h.Board.ListActivity(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err, "list_activity")
		return
	}

	logOut("HTTP_OUT: Журнал получен", start, http.StatusOK, zap.Int("count", len(entries)))
	writeJSON(w, http.StatusOK, dto.FromActivityList(entries))
}
