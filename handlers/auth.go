package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/CrowderSoup/todo-lists/database"
	"github.com/CrowderSoup/todo-lists/services"
)

// AuthHandler handles user registration and session tokens
type AuthHandler struct {
	authService *services.AuthService
	validator   *services.Validator
	logger      *log.Logger
}

func NewAuthHandler(authService *services.AuthService, validator *services.Validator, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator,
		logger:      logger,
	}
}

type userResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Register creates a user account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to create user")
		return
	}

	var in database.InsertUser
	if err := h.validator.Decode(services.SchemaCredentials, body, &in); err != nil {
		writeFailure(w, h.logger, err, "", "Failed to create user")
		return
	}

	user, err := h.authService.Register(in)
	if errors.Is(err, services.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

// Login exchanges a username and password for a token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to log in")
		return
	}

	var req database.InsertUser
	if err := h.validator.Decode(services.SchemaCredentials, body, &req); err != nil {
		writeFailure(w, h.logger, err, "", "Failed to log in")
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// VerifyToken checks a bearer token and returns its user
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	// Get token from Authorization header
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		writeError(w, http.StatusUnauthorized, "Missing authorization header")
		return
	}

	// Extract token from Bearer format
	authParts := strings.Split(authHeader, " ")
	if len(authParts) != 2 || authParts[0] != "Bearer" {
		writeError(w, http.StatusUnauthorized, "Invalid authorization format")
		return
	}

	user, err := h.authService.VerifyJWT(authParts[1])
	if err != nil {
		h.logger.Debug("token rejected", "err", err)
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}
