package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/server/middleware"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func setupTestJWTService(_ *testing.T, expirationHours int) *JWTService {
	return NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: expirationHours})
}

func TestJWTService_RoundTrip(t *testing.T) {
	service := setupTestJWTService(t, 24)
	actor := uuid.New()

	token, err := service.GenerateToken(actor, middleware.RoleRecruiter)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, claims.GetActorID())
	assert.Equal(t, middleware.RoleRecruiter, claims.GetRole())
	assert.Equal(t, actor.String(), claims.Subject)
}

func TestJWTService_GenerateToken_Rejects(t *testing.T) {
	service := setupTestJWTService(t, 24)

	_, err := service.GenerateToken(uuid.Nil, middleware.RoleRecruiter)
	assert.Error(t, err)

	_, err = service.GenerateToken(uuid.New(), "superuser")
	assert.Error(t, err)
}

func TestJWTService_ValidateToken_Failures(t *testing.T) {
	service := setupTestJWTService(t, 1)
	actor := uuid.New()

	expired := setupTestJWTService(t, 1)
	expired.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expiredToken, err := expired.GenerateToken(actor, middleware.RoleAdmin)
	require.NoError(t, err)

	other := NewJWTService(&config.JWTConfig{Secret: "a-different-secret-entirely-32b!", ExpirationHours: 1})
	foreignToken, err := other.GenerateToken(actor, middleware.RoleAdmin)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{ActorID: actor, Role: middleware.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{ActorID: actor, Role: "root"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"garbage", "not.a.token", "malformed"},
		{"expired", expiredToken, "expired"},
		{"wrong secret", foreignToken, "signature"},
		{"alg none", noneToken, "failed to parse"},
		{"unknown role", badRole, "unknown role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	service := setupTestJWTService(t, 24)
	actor := uuid.New()
	token, err := service.GenerateToken(actor, middleware.RoleCandidate)
	require.NoError(t, err)

	got, err := service.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got.GetActorID())
	assert.Equal(t, middleware.RoleCandidate, got.GetRole())
}

func TestJWTService_IssuerAndRoleLifetime(t *testing.T) {
	cfg := &config.JWTConfig{Secret: testSecret, Issuer: "hiring-pipeline", ExpirationHours: 12, CandidateExpirationHours: 72}
	service := NewJWTService(cfg)
	now := time.Now().Truncate(time.Second)
	service.now = func() time.Time { return now }

	staffToken, err := service.GenerateToken(uuid.New(), middleware.RoleRecruiter)
	require.NoError(t, err)
	candidateToken, err := service.GenerateToken(uuid.New(), middleware.RoleCandidate)
	require.NoError(t, err)

	staff, err := service.ValidateToken(staffToken)
	require.NoError(t, err)
	assert.Equal(t, "hiring-pipeline", staff.Issuer)
	assert.WithinDuration(t, now.Add(12*time.Hour), staff.ExpiresAt.Time, time.Second)

	candidate, err := service.ValidateToken(candidateToken)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(72*time.Hour), candidate.ExpiresAt.Time, time.Second)

	other := NewJWTService(&config.JWTConfig{Secret: testSecret, Issuer: "another-service", ExpirationHours: 1})
	_, err = other.ValidateToken(staffToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another service")
}
