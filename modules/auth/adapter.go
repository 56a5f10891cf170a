package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/Aftab-Fury/Task-Manager/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Service names registered by the auth module.
const (
	ServiceRegister           = "register"
	ServiceLogin              = "login"
	ServiceRefreshToken       = "refresh-token"
	ServiceValidateToken      = "validate-token"
	ServiceGetUser            = "get-user"
	ServiceFindUsers          = "find-users"
	ServiceFindUserByUsername = "find-user-by-username"
)

// AuthPort is used by the HTTP layer for account and token operations.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID uint) (*domain.Profile, error)
}

// UserPort resolves user references for other modules. It is the identity
// lookup used by task assignment and per-user listings.
type UserPort interface {
	FindUsers(ctx context.Context, ids []uint) ([]domain.Profile, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.Profile, error)
}

// AuthAdapter implements AuthPort and UserPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var (
	_ AuthPort = (*AuthAdapter)(nil)
	_ UserPort = (*AuthAdapter)(nil)
)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Register creates a new account.
func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := callService(ctx, a.container, ServiceRegister, &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a token pair.
func (a *AuthAdapter) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	req := LoginRequest{Username: username, Password: password}
	var resp LoginResponse
	if err := callService(ctx, a.container, ServiceLogin, &req, &resp); err != nil {
		return nil, err
	}
	return resp.tokenPair(), nil
}

// Refresh exchanges a refresh token for a new token pair.
func (a *AuthAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp RefreshResponse
	if err := callService(ctx, a.container, ServiceRefreshToken, &req, &resp); err != nil {
		return nil, err
	}
	return resp.tokenPair(), nil
}

// ValidateToken validates an access token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := callService(ctx, a.container, ServiceValidateToken, &req, &resp); err != nil {
		return nil, err
	}

	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %s", resp.Error)
	}

	return &domain.Claims{
		UserID:   resp.UserID,
		Username: resp.Username,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID uint) (*domain.Profile, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse

	if err := callService(ctx, a.container, ServiceGetUser, &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, domain.ErrNotFound
	}
	return &resp.User, nil
}

// FindUsers returns the profiles of the users among ids that exist.
func (a *AuthAdapter) FindUsers(ctx context.Context, ids []uint) ([]domain.Profile, error) {
	req := FindUsersRequest{UserIDs: ids}
	var resp FindUsersResponse

	if err := callService(ctx, a.container, ServiceFindUsers, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Users == nil {
		resp.Users = []domain.Profile{}
	}
	return resp.Users, nil
}

// FindUserByUsername resolves a username. It returns domain.ErrNotFound when
// no user matches.
func (a *AuthAdapter) FindUserByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	req := FindUserByUsernameRequest{Username: username}
	var resp FindUserByUsernameResponse

	if err := callService(ctx, a.container, ServiceFindUserByUsername, &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, domain.ErrNotFound
	}
	return &resp.User, nil
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}
