package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/platebook/platebook-server/internal/domain"
	"github.com/platebook/platebook-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "registerUser",
		Method:        http.MethodPost,
		Path:          "/api/v1/users",
		Summary:       "Register new user",
		Description:   "Creates a new user account",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "issueToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/token",
		Summary:     "Issue access token",
		Description: "Authenticates a user and returns a PASETO access token. Rate limited per client IP.",
		Tags:        []string{"Users"},
	}, s.handleIssueToken)
}

// === DTOs ===

// RegisterUserRequest is the request body for user registration.
type RegisterUserRequest struct {
	Email    string `json:"email,omitempty" validate:"required,email,max=254" doc:"User email address"`
	Password string `json:"password,omitempty" validate:"required,min=5,max=1024" doc:"User password"`
	Name     string `json:"name,omitempty" validate:"required,max=255" doc:"Display name"`
}

// RegisterUserInput wraps the register request for Huma.
type RegisterUserInput struct {
	Body RegisterUserRequest
}

// UserResponse contains user information in API responses.
type UserResponse struct {
	ID          string    `json:"id" doc:"User ID"`
	Email       string    `json:"email" doc:"User email"`
	Name        string    `json:"name" doc:"Display name"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update timestamp"`
	LastLoginAt time.Time `json:"last_login_at,omitzero" doc:"Last login timestamp"`
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// TokenRequest is the request body for issuing an access token.
type TokenRequest struct {
	Email    string `json:"email,omitempty" validate:"required" doc:"User email"`
	Password string `json:"password,omitempty" validate:"required" doc:"User password"`
}

// TokenInput wraps the token request with proxy headers for Huma.
type TokenInput struct {
	Body          TokenRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// TokenResponse contains the issued access token.
type TokenResponse struct {
	Token     string `json:"token" doc:"PASETO access token"`
	TokenType string `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresIn int64  `json:"expires_in" doc:"Token lifetime in seconds"`
}

// TokenOutput wraps the token response for Huma.
type TokenOutput struct {
	Body TokenResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterUserInput) (*UserOutput, error) {
	user, err := s.services.Auth.Register(ctx, service.RegisterRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		Name:     input.Body.Name,
	})
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleIssueToken(ctx context.Context, input *TokenInput) (*TokenOutput, error) {
	clientIP := extractIP(input.XForwardedFor, input.XRealIP)
	if clientIP == "" {
		clientIP = "unknown"
	}

	if !s.tokenRateLimiter.Allow(clientIP) {
		s.logger.Warn("Token rate limit exceeded", "ip", clientIP)
		return nil, huma.Error429TooManyRequests("Too many token requests. Please try again later.")
	}

	resp, err := s.services.Auth.IssueToken(ctx, service.TokenRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	return &TokenOutput{
		Body: TokenResponse{
			Token:     resp.Token,
			TokenType: resp.TokenType,
			ExpiresIn: resp.ExpiresIn,
		},
	}, nil
}

// === Helpers ===

func mapUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.DisplayName,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}
