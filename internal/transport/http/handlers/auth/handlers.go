package authhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"attendance/internal/auth"
	"attendance/internal/transport/http/api"
	"attendance/internal/transport/http/middleware"
)

type Handler struct {
	Secret        string
	TokenTTL      time.Duration
	AdminUsername string
	AdminHash     string
}

func NewHandler(secret string, ttl time.Duration, adminUsername, adminHash string) *Handler {
	return &Handler{Secret: secret, TokenTTL: ttl, AdminUsername: adminUsername, AdminHash: adminHash}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	username := strings.TrimSpace(payload.Username)

	if err := auth.VerifyAdmin(h.AdminUsername, h.AdminHash, username, payload.Password); err != nil {
		slog.Warn("login rejected", "username", username, "requestId", requestID)
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{Username: username, Role: auth.RoleAdmin}, h.TokenTTL)
	if err != nil {
		slog.Error("token generation failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestID)
		return
	}
	api.Success(w, loginResponse{Token: token, ExpiresAt: time.Now().Add(h.TokenTTL).UTC()}, requestID)
}
