package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Token defaults. Candidates come back to their application over several
// days, staff sessions are a working day.
const (
	DefaultJWTIssuer                   = "hiring-pipeline"
	DefaultJWTExpirationHours          = 12
	DefaultJWTCandidateExpirationHours = 72
	minJWTSecretLength                 = 16
)

// JWTConfig holds configuration for the actor tokens accepted by the API.
type JWTConfig struct {
	Secret string
	// Issuer is stamped into every token and required on validation when set.
	Issuer string
	// ExpirationHours is the lifetime of recruiter and admin tokens.
	ExpirationHours int
	// CandidateExpirationHours is the lifetime of candidate tokens. Zero falls
	// back to ExpirationHours.
	CandidateExpirationHours int
}

// NewJWTConfig reads the token configuration from the environment:
// JWT_SECRET (required), JWT_ISSUER, JWT_EXPIRATION_HOURS and
// JWT_CANDIDATE_EXPIRATION_HOURS.
func NewJWTConfig() (*JWTConfig, error) {
	cfg := &JWTConfig{
		Secret: os.Getenv("JWT_SECRET"),
		Issuer: os.Getenv("JWT_ISSUER"),
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultJWTIssuer
	}

	var err error
	if cfg.ExpirationHours, err = envHours("JWT_EXPIRATION_HOURS", DefaultJWTExpirationHours); err != nil {
		return nil, err
	}
	if cfg.CandidateExpirationHours, err = envHours("JWT_CANDIDATE_EXPIRATION_HOURS", DefaultJWTCandidateExpirationHours); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Lifetime returns how long a token for a candidate or a staff member stays valid.
func (c *JWTConfig) Lifetime(candidate bool) time.Duration {
	hours := c.ExpirationHours
	if candidate && c.CandidateExpirationHours > 0 {
		hours = c.CandidateExpirationHours
	}
	return time.Duration(hours) * time.Hour
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if len(c.Secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	if c.CandidateExpirationHours < 1 {
		return fmt.Errorf("JWT_CANDIDATE_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.CandidateExpirationHours)
	}
	return nil
}

func envHours(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return hours, nil
}
