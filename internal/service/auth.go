package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"larvadet/internal/models"
	"larvadet/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDeviceInactive     = errors.New("device is not active")
)

type AuthService interface {
	// AuthenticateDevice verifies device Basic-auth credentials against the
	// stored bcrypt hash and returns the active device record.
	AuthenticateDevice(deviceCode, password string) (*models.Device, error)
	// Login authenticates a dashboard user and issues a JWT.
	Login(username, password string) (string, time.Time, error)
	// ParseToken validates a dashboard JWT and returns its claims.
	ParseToken(tokenString string) (*models.Claims, error)
}

type authService struct {
	devices   repository.DeviceRepository
	users     repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthService(devices repository.DeviceRepository, users repository.UserRepository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		devices:   devices,
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (s *authService) AuthenticateDevice(deviceCode, password string) (*models.Device, error) {
	auth, err := s.devices.GetAuthByCode(deviceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up device credentials: %w", err)
	}
	if auth == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(auth.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	device, err := s.devices.GetByCode(deviceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}
	if device == nil {
		return nil, ErrInvalidCredentials
	}
	if !device.IsActive {
		return nil, ErrDeviceInactive
	}

	return device, nil
}

func (s *authService) Login(username, password string) (string, time.Time, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	claims := &models.Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.logger.Error("Failed to sign JWT", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

func (s *authService) ParseToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
