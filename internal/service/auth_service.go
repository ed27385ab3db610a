package service

import (
	"context"
	"errors"

	"monitoring-workspace-be/internal/dto"
	"monitoring-workspace-be/internal/pkg/logger"
	"monitoring-workspace-be/pkg/backend"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthBackend issues and revokes tokens on behalf of the monitoring backend.
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (*backend.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type IAuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

type authService struct {
	backend AuthBackend
	logger  logger.ILogger
}

func NewAuthService(backend AuthBackend, log logger.ILogger) IAuthService {
	return &authService{backend: backend, logger: log}
}

func toTokenResponse(p *backend.TokenPair) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
	}
}

func (s *authService) authError(op string, err error) error {
	if errors.Is(err, backend.ErrUnauthorized) {
		return ErrInvalidCredentials
	}
	s.logger.Error("AuthService", op+" failed", map[string]interface{}{"error": err})
	return err
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	pair, err := s.backend.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.authError("Login", err)
	}
	s.logger.Info("AuthService", "User logged in", map[string]interface{}{"username": req.Username})
	return toTokenResponse(pair), nil
}

func (s *authService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	pair, err := s.backend.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.authError("Refresh", err)
	}
	return toTokenResponse(pair), nil
}

// Logout revokes the token upstream. An already invalid token counts as
// logged out.
func (s *authService) Logout(ctx context.Context, accessToken string) error {
	err := s.backend.Logout(ctx, accessToken)
	if err == nil || errors.Is(err, backend.ErrUnauthorized) {
		return nil
	}
	return s.authError("Logout", err)
}
