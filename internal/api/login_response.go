package api

import "tenanthub/internal/models"

type LoginResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token,omitempty"`
	Error   string       `json:"error,omitempty"`
	User    *models.User `json:"user,omitempty"`
}
