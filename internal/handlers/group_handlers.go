package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/handlers/dto"
	"whiteboard/internal/logger"
)

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	groups, err := h.Board.ListGroups(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "list_groups")
		return
	}

	logOut("HTTP_OUT: Группы получены", start, http.StatusOK, zap.Int("count", len(groups)))
	writeJSON(w, http.StatusOK, dto.FromGroupList(groups))
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.CreateGroupRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	g, err := h.Board.CreateGroup(r.Context(), request.Name, request.Color)
	if err != nil {
		handleServiceError(w, r, err, "create_group")
		return
	}

	logOut("HTTP_OUT: Группа создана", start, http.StatusCreated, zap.Int64("group_id", g.ID))
	writeJSON(w, http.StatusCreated, dto.FromGroup(g))
}

func (h *Handler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var request dto.RenameGroupRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	g, err := h.Board.RenameGroup(r.Context(), id, request.Name)
	if err != nil {
		handleServiceError(w, r, err, "rename_group")
		return
	}

	logOut("HTTP_OUT: Группа переименована", start, http.StatusOK, zap.Int64("group_id", id))
	writeJSON(w, http.StatusOK, dto.FromGroup(g))
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Board.DeleteGroup(r.Context(), id); err != nil {
		handleServiceError(w, r, err, "delete_group")
		return
	}

	logOut("HTTP_OUT: Группа удалена", start, http.StatusNoContent, zap.Int64("group_id", id))
	w.WriteHeader(http.StatusNoContent)
}
