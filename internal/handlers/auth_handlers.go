package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"tenanthub/internal/api"
	"tenanthub/internal/middleware"
	"tenanthub/internal/models"
	"tenanthub/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterUserRequest represents a request to create a portal account
type RegisterUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new portal account
func (s *Server) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		var req RegisterUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == "" || req.Email == "" || req.Password == "" {
			http.Error(w, "Name, email and password are required", http.StatusBadRequest)
			return
		}
		if req.Role == "" {
			req.Role = models.RoleTenant
		}
		if req.Role != models.RoleTenant && req.Role != models.RoleLandlord {
			http.Error(w, "Role must be tenant or landlord", http.StatusBadRequest)
			return
		}
		if req.Avatar == "" {
			req.Avatar = "/avatars/default.png"
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Failed to process password", http.StatusInternalServerError)
			return
		}

		user := &models.User{
			ID:             uuid.NewString(),
			Name:           req.Name,
			Email:          req.Email,
			Avatar:         req.Avatar,
			Role:           req.Role,
			HashedPassword: string(hashed),
			CreatedAt:      time.Now().UTC(),
		}

		if err := s.Store.SaveUser(r.Context(), user); err != nil {
			s.Metrics.IncrementErrors()
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// HandleLogin authenticates a portal account and issues a token
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Metrics.IncrementRequests()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		user, err := s.Store.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, api.LoginResponse{
				Success: false,
				Error:   "Invalid credentials",
			})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
			writeJSON(w, http.StatusUnauthorized, api.LoginResponse{
				Success: false,
				Error:   "Invalid credentials",
			})
			return
		}

		token, err := middleware.GenerateToken(user)
		if err != nil {
			s.Metrics.IncrementErrors()
			writeError(w, utils.NewAppError(utils.ErrDatabase, "failed to issue token", err))
			return
		}

		writeJSON(w, http.StatusOK, api.LoginResponse{
			Success: true,
			Token:   token,
			User:    user,
		})
	}
}
