package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/examenapp/examen-api/internal/auth"
	"github.com/examenapp/examen-api/internal/models"
	"github.com/examenapp/examen-api/internal/store"
)

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (t *createTaskRequest) validate() string {
	switch {
	case t.Title == "":
		return "title is required"
	case t.Status != "" && !models.ValidTaskStatus(t.Status):
		return "unknown task status"
	case t.Priority != "" && !models.ValidTaskPriority(t.Priority):
		return "unknown task priority"
	}
	return ""
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	task, err := store.CreateTask(r.Context(), s.db, store.CreateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		UserID:      claims.UserID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, "task created", task)
}

// handleListTasks scopes non-admin callers to their own tasks.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	page, limit := pageParams(r)
	q := r.URL.Query()

	filter := store.TaskFilter{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
	}
	if claims.IsAdmin() {
		filter.UserID, _ = strconv.ParseInt(q.Get("user_id"), 10, 64)
	} else {
		filter.UserID = claims.UserID
	}

	result, err := store.ListTasks(r.Context(), s.db, filter, page, limit)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "tasks retrieved", result)
}

// canAccessTask allows owners and admins through.
func canAccessTask(claims *auth.Claims, task *models.Task) bool {
	return claims.IsAdmin() || task.UserID == claims.UserID
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	id, okID := idParam(r)
	if !okID {
		s.respondError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	task, err := store.GetTask(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if !canAccessTask(claims, task) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	s.respondJSON(w, http.StatusOK, "task retrieved", task)
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	id, okID := idParam(r)
	if !okID {
		s.respondError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != nil && !models.ValidTaskStatus(*req.Status) {
		s.respondError(w, http.StatusUnprocessableEntity, "unknown task status")
		return
	}
	if req.Priority != nil && !models.ValidTaskPriority(*req.Priority) {
		s.respondError(w, http.StatusUnprocessableEntity, "unknown task priority")
		return
	}

	task, err := store.GetTask(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if !canAccessTask(claims, task) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	updated, err := store.UpdateTask(r.Context(), s.db, id, store.UpdateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "task updated", updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	id, okID := idParam(r)
	if !okID {
		s.respondError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	task, err := store.GetTask(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if !canAccessTask(claims, task) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	if err := store.DeleteTask(r.Context(), s.db, id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "task deleted", nil)
}
