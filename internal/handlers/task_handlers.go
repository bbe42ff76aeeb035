package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/handlers/dto"
	"whiteboard/internal/logger"
	"whiteboard/internal/service"
)

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if request.ScheduledAt.Malformed() {
		handleBusinessError(w, service.NewValidationError("scheduled_at", "не удалось разобрать время"))
		return
	}

	created, err := h.Board.CreateTask(r.Context(), actorFrom(r.Context()), service.CreateTaskInput{
		GroupID:     request.GroupID,
		Title:       request.Title,
		Description: request.Description,
		StartDate:   request.StartDate,
		Priority:    request.Priority,
		Status:      request.Status,
		ScheduledAt: request.ScheduledAt.Ptr(),
	})
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logOut("HTTP_OUT: Задача создана", start, http.StatusCreated,
		zap.Int64("task_id", created.ID),
		zap.Int64("group_id", created.GroupID))
	writeJSON(w, http.StatusCreated, dto.FromTask(created))
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if request.ScheduledAt.Malformed() {
		handleBusinessError(w, service.NewValidationError("scheduled_at", "не удалось разобрать время"))
		return
	}
	if request.CompletedAt.Malformed() {
		handleBusinessError(w, service.NewValidationError("completed_at", "не удалось разобрать время"))
		return
	}

	updated, err := h.Board.UpdateTask(r.Context(), actorFrom(r.Context()), id, service.UpdateTaskInput{
		Title:            request.Title,
		Description:      request.Description,
		StartDate:        request.StartDate,
		Priority:         request.Priority,
		GroupID:          request.GroupID,
		Solution:         request.Solution,
		ScheduledAt:      request.ScheduledAt.Ptr(),
		ClearScheduledAt: request.ScheduledAt.Null(),
		Status:           request.Status,
		CompletedAt:      request.CompletedAt.Ptr(),
	})
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logOut("HTTP_OUT: Задача обновлена", start, http.StatusOK,
		zap.Int64("task_id", id),
		zap.String("status", string(updated.Status)))
	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}

func (h *Handler) AutoCompleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	completed, err := h.Board.AutoComplete(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "auto_complete_task")
		return
	}

	logOut("HTTP_OUT: Задача закрыта автоматически", start, http.StatusOK, zap.Int64("task_id", id))
	writeJSON(w, http.StatusOK, dto.FromTask(completed))
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Board.DeleteTask(r.Context(), actorFrom(r.Context()), id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logOut("HTTP_OUT: Задача удалена", start, http.StatusNoContent, zap.Int64("task_id", id))
	w.WriteHeader(http.StatusNoContent)
}
