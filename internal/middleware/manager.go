package middleware

import (
	"fmt"

	"github.com/marketloom/user-api/internal/auth"
	"github.com/marketloom/user-api/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Manager holds the middleware instances and the shared Redis client
type Manager struct {
	Auth        *AuthMiddleware
	ErrorLogger *ErrorLoggerMiddleware
	RedisClient *redis.Client
	Config      *config.Config
	Logger      *logrus.Logger
}

// NewManager wires the auth gate and supporting middleware. The token
// service construction fails on an empty signing secret, which makes a
// misconfigured deployment refuse to start here.
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	tokenService, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = NewRedisClient(&cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
	}

	return &Manager{
		Auth:        NewAuthMiddleware(tokenService, logger),
		ErrorLogger: NewErrorLoggerMiddleware(logger),
		RedisClient: redisClient,
		Config:      cfg,
		Logger:      logger,
	}, nil
}

// TokenService exposes the token service for handlers that issue tokens
func (m *Manager) TokenService() *auth.TokenService {
	return m.Auth.tokens
}

// Close closes all middleware resources
func (m *Manager) Close() error {
	if m.RedisClient != nil {
		return m.RedisClient.Close()
	}
	return nil
}
