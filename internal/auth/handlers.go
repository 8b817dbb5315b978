package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Handlers обработчики аутентификации
type Handlers struct {
	enabled         bool
	adminUsername   string
	adminHash       string
	jwtService      *JWTService
	passwordService *PasswordService
	log             *zap.Logger
}

// NewHandlers создает обработчики входа администратора
func NewHandlers(enabled bool, adminUsername, adminHash string, jwtService *JWTService, passwordService *PasswordService, log *zap.Logger) *Handlers {
	return &Handlers{
		enabled:         enabled,
		adminUsername:   adminUsername,
		adminHash:       adminHash,
		jwtService:      jwtService,
		passwordService: passwordService,
		log:             log,
	}
}

// TokenRequest структура запроса токена
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse структура ответа с токеном
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ErrorResponse структура ошибки
type ErrorResponse struct {
	Error string `json:"error"`
}

// Token обработчик входа администратора
//
//	@Summary		Issue admin token
//	@Description	Exchange admin credentials for a JWT access token
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		TokenRequest	true	"Admin credentials"
//	@Success		200		{object}	TokenResponse	"Token issued"
//	@Failure		400		{object}	ErrorResponse	"Invalid request data"
//	@Failure		401		{object}	ErrorResponse	"Invalid credentials"
//	@Failure		404		{object}	ErrorResponse	"Authentication disabled"
//	@Router			/api/v1/auth/token [post]
func (h *Handlers) Token(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeError(w, "Authentication is disabled", http.StatusNotFound)
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid token request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	// Пароль проверяем всегда, чтобы время ответа не зависело от имени
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.adminUsername)) == 1
	passErr := h.passwordService.VerifyPassword(h.adminHash, req.Password)
	if !userOK || passErr != nil {
		h.log.Warn("admin login failed", zap.String("username", req.Username))
		writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateAccessToken(h.adminUsername)
	if err != nil {
		h.log.Error("failed to generate access token", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.log.Info("admin logged in", zap.String("username", h.adminUsername))
	writeJSON(w, TokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt}, http.StatusOK)
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message}, statusCode)
}
