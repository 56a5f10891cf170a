// Package auth is the identity module: it stores user accounts, issues and
// validates JWTs and answers user lookups for the other modules.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aftab-Fury/Task-Manager/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/gorm"
)

// ModuleConfig configures the auth module.
type ModuleConfig struct {
	DBDriver string
	DBDSN    string
	DBDebug  bool
	JWT      JWTConfig
}

// AuthModule provides authentication and user lookup services.
type AuthModule struct {
	config  ModuleConfig
	logger  *slog.Logger
	db      *gorm.DB
	service *AuthService
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(config ModuleConfig, logger *slog.Logger) *AuthModule {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthModule{
		config: config,
		logger: logger.With("module", "auth"),
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start opens the user store and builds the service.
func (m *AuthModule) Start(_ context.Context) error {
	db, err := database.Open(m.config.DBDriver, m.config.DBDSN, m.config.DBDebug)
	if err != nil {
		return err
	}
	m.db = db

	repo := NewUserRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewAuthService(repo, NewPasswordHasher(), NewJWTManager(m.config.JWT))

	m.logger.Info("module started", "driver", m.config.DBDriver, "database", m.config.DBDSN)
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	if err := database.Close(m.db); err != nil {
		m.logger.Error("failed to close database", "error", err)
	}
	m.logger.Info("module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	if err := database.Ping(m.db); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.config.DBDriver,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRegister, json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRegister, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLogin, json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLogin, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRefreshToken, json.Unmarshal, json.Marshal, m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRefreshToken, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceValidateToken, json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceValidateToken, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetUser, json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceFindUsers, json.Unmarshal, json.Marshal, m.handleFindUsers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceFindUsers, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceFindUserByUsername, json.Unmarshal, json.Marshal, m.handleFindUserByUsername,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceFindUserByUsername, err)
	}

	m.logger.Info("registered services",
		"services", []string{
			ServiceRegister, ServiceLogin, ServiceRefreshToken, ServiceValidateToken,
			ServiceGetUser, ServiceFindUsers, ServiceFindUserByUsername,
		})
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, err := m.service.Register(ctx, RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	return RegisterResponse{
		User:      user.Profile(),
		CreatedAt: user.CreatedAt,
	}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	tokens, err := m.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		return LoginResponse{}, err
	}

	return LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	}, nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (RefreshResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return RefreshResponse{}, err
	}

	return RefreshResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	}, nil
}

// handleValidateToken reports validation failures in the response, not as
// an error.
func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		return ValidateTokenResponse{
			Valid: false,
			Error: errMsg,
		}, nil
	}

	return ValidateTokenResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return GetUserResponse{Found: false}, nil
		}
		return GetUserResponse{}, err
	}

	return GetUserResponse{
		Found:     true,
		User:      user.Profile(),
		CreatedAt: user.CreatedAt,
	}, nil
}

func (m *AuthModule) handleFindUsers(ctx context.Context, req FindUsersRequest, _ *mono.Msg) (FindUsersResponse, error) {
	profiles, err := m.service.FindUsers(ctx, req.UserIDs)
	if err != nil {
		return FindUsersResponse{}, err
	}
	return FindUsersResponse{Users: profiles}, nil
}

func (m *AuthModule) handleFindUserByUsername(ctx context.Context, req FindUserByUsernameRequest, _ *mono.Msg) (FindUserByUsernameResponse, error) {
	user, err := m.service.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return FindUserByUsernameResponse{Found: false}, nil
		}
		return FindUserByUsernameResponse{}, err
	}
	return FindUserByUsernameResponse{Found: true, User: user.Profile()}, nil
}
