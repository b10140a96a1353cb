package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"larvadet/internal/models"
	"larvadet/internal/repository/repositorytest"
)

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestAuthService(t *testing.T) (AuthService, *repositorytest.FakeDeviceRepo) {
	t.Helper()
	devices := repositorytest.NewFakeDeviceRepo()
	devices.Add(&models.Device{ID: "dev-1", DeviceCode: "node01", IsActive: true})
	devices.AddAuth(&models.DeviceAuth{ID: "auth-1", DeviceID: "dev-1", DeviceCode: "node01", PasswordHash: hash(t, "secret")})
	return NewAuthService(devices, &fakeUserRepo{}, "test-secret", time.Hour, zap.NewNop()), devices
}

type fakeUserRepo struct{}

func (f *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	if username != "admin" {
		return nil, nil
	}
	h, _ := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	return &models.User{ID: 1, Username: "admin", PasswordHash: string(h), Role: "admin"}, nil
}

func TestAuthenticateDevice(t *testing.T) {
	svc, _ := newTestAuthService(t)

	device, err := svc.AuthenticateDevice("node01", "secret")
	require.NoError(t, err)
	assert.Equal(t, "node01", device.DeviceCode)
}

func TestAuthenticateDeviceWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.AuthenticateDevice("node01", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateDeviceUnknownCode(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.AuthenticateDevice("ghost", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateInactiveDevice(t *testing.T) {
	svc, devices := newTestAuthService(t)
	devices.Add(&models.Device{ID: "dev-2", DeviceCode: "node02", IsActive: false})
	devices.AddAuth(&models.DeviceAuth{ID: "auth-2", DeviceID: "dev-2", DeviceCode: "node02", PasswordHash: hash(t, "pw")})

	_, err := svc.AuthenticateDevice("node02", "pw")
	assert.ErrorIs(t, err, ErrDeviceInactive)
}

func TestLoginAndParseToken(t *testing.T) {
	svc, _ := newTestAuthService(t)

	token, expiresAt, err := svc.Login("admin", "admin-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, _, err := svc.Login("admin", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("ghost", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.ParseToken("not-a-token")
	assert.Error(t, err)
}
