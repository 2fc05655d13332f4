package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/examenapp/examen-api/internal/auth"
	"github.com/examenapp/examen-api/internal/store"
)

type registerDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "device token is required")
		return
	}

	dt, err := store.RegisterDeviceToken(r.Context(), s.db, claims.UserID, req.Token, req.Platform)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, "device registered", dt)
}

type sendNotificationRequest struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || req.Title == "" || req.Body == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "token, title and body are required")
		return
	}

	messageID, err := s.notifier.Send(r.Context(), req.Token, req.Title, req.Body, req.Data)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "notification sent", map[string]string{"message_id": messageID})
}

type sendMulticastRequest struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

func (s *Server) handleSendMulticast(w http.ResponseWriter, r *http.Request) {
	var req sendMulticastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Tokens) == 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "tokens array must not be empty")
		return
	}
	if req.Title == "" || req.Body == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "title and body are required")
		return
	}

	result, err := s.notifier.SendMulticast(r.Context(), req.Tokens, req.Title, req.Body, req.Data)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "multicast notification sent", result)
}

type sendToUserRequest struct {
	UserID int64             `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

// handleSendToUser fans out to every device registered for a user.
func (s *Server) handleSendToUser(w http.ResponseWriter, r *http.Request) {
	var req sendToUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.Title == "" || req.Body == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "user_id, title and body are required")
		return
	}

	tokens, err := store.ListDeviceTokens(r.Context(), s.db, req.UserID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if len(tokens) == 0 {
		s.respondError(w, http.StatusNotFound, "no registered devices for user")
		return
	}

	result, err := s.notifier.SendMulticast(r.Context(), tokens, req.Title, req.Body, req.Data)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "notification sent to user devices", result)
}

type sendToTopicRequest struct {
	Topic string            `json:"topic"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

func (s *Server) handleSendToTopic(w http.ResponseWriter, r *http.Request) {
	var req sendToTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" || req.Title == "" || req.Body == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "topic, title and body are required")
		return
	}

	messageID, err := s.notifier.SendToTopic(r.Context(), req.Topic, req.Title, req.Body, req.Data)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "topic notification sent", map[string]string{"message_id": messageID})
}

// handleTestNotification echoes the payload without dispatching anything.
func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.respondJSON(w, http.StatusOK, "test notification logged (not actually sent)", map[string]interface{}{
		"token":     req.Token,
		"title":     req.Title,
		"body":      req.Body,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
