package auth

import (
	"time"

	domain "github.com/Aftab-Fury/Task-Manager/domain/user"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegisterResponse represents a user registration response.
type RegisterResponse struct {
	User      domain.Profile `json:"user"`
	CreatedAt time.Time      `json:"created_at"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a user login response with tokens.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func (r LoginResponse) tokenPair() *domain.TokenPair {
	return &domain.TokenPair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
		TokenType:    r.TokenType,
	}
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse represents a token refresh response.
type RefreshResponse = LoginResponse

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid    bool   `json:"valid"`
	UserID   uint   `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID uint `json:"user_id"`
}

// GetUserResponse represents a get user response. Found is false when no
// such user exists.
type GetUserResponse struct {
	Found     bool           `json:"found"`
	User      domain.Profile `json:"user"`
	CreatedAt time.Time      `json:"created_at"`
}

// FindUsersRequest asks for the profiles of several users.
type FindUsersRequest struct {
	UserIDs []uint `json:"user_ids"`
}

// FindUsersResponse lists the users that exist among the requested ids.
type FindUsersResponse struct {
	Users []domain.Profile `json:"users"`
}

// FindUserByUsernameRequest looks a user up by username.
type FindUserByUsernameRequest struct {
	Username string `json:"username"`
}

// FindUserByUsernameResponse reports the matching user, if any.
type FindUserByUsernameResponse struct {
	Found bool           `json:"found"`
	User  domain.Profile `json:"user"`
}
