package auth

import "github.com/messagely/messagely/internal/types"

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the login response body
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// RegisterResponse wraps the created user's public fields. The password
// hash has no field here, so it cannot leak through this response.
type RegisterResponse struct {
	User types.PublicUser `json:"user"`
}
