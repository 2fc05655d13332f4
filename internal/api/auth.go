package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/examenapp/examen-api/internal/auth"
	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/store"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r *registerRequest) validate() string {
	switch {
	case !emailPattern.MatchString(r.Email):
		return "a valid email is required"
	case len(r.Password) < 6:
		return "password must be at least 6 characters"
	case r.FirstName == "":
		return "first name is required"
	case r.LastName == "":
		return "last name is required"
	}
	return ""
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondError(w, http.StatusUnprocessableEntity, msg)
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
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, "account created", user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type loginResponse struct {
	User  loginUser `json:"user"`
	Token string    `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := store.GetUserByEmail(r.Context(), s.db, req.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			s.respondStoreError(w, database.ErrInvalidCredentials)
			return
		}
		s.respondStoreError(w, err)
		return
	}

	if !user.IsActive {
		s.respondError(w, http.StatusUnauthorized, "account is deactivated")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.respondStoreError(w, database.ErrInvalidCredentials)
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "login successful", loginResponse{
		User: loginUser{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
		},
		Token: token,
	})
}
