package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examenapp/examen-api/internal/auth"
	"github.com/examenapp/examen-api/internal/models"
	"github.com/examenapp/examen-api/internal/store"
)

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return store.ClampPage(page, limit)
}

type createUserRequest struct {
	registerRequest
	Role string `json:"role"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if req.Role != "" && req.Role != models.RoleAdmin && req.Role != models.RoleUser {
		s.respondError(w, http.StatusUnprocessableEntity, "invalid role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	user, err := store.CreateUser(r.Context(), s.db, store.CreateUserRequest{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, "user created", user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	result, err := store.ListUsers(r.Context(), s.db, page, limit)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "users retrieved", result)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	user, err := store.GetUser(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "user retrieved", user)
}

type updateUserRequest struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email != nil && !emailPattern.MatchString(*req.Email) {
		s.respondError(w, http.StatusUnprocessableEntity, "a valid email is required")
		return
	}
	if req.Role != nil && *req.Role != models.RoleAdmin && *req.Role != models.RoleUser {
		s.respondError(w, http.StatusUnprocessableEntity, "invalid role")
		return
	}

	patch := store.UpdateUserRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		IsActive:  req.IsActive,
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			s.respondError(w, http.StatusUnprocessableEntity, "password must be at least 6 characters")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		patch.PasswordHash = &hash
	}

	user, err := store.UpdateUser(r.Context(), s.db, id, patch)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "user updated", user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	if err := store.DeleteUser(r.Context(), s.db, id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "user deleted", nil)
}
