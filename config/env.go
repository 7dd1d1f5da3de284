package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names read by FromEnv.
const (
	EnvAuthDomain   = "COGNITO_AUTH_DOMAIN"
	EnvClientID     = "COGNITO_CLIENT_ID"
	EnvClientSecret = "COGNITO_CLIENT_SECRET"
	EnvUserPoolID   = "COGNITO_USER_POOL_ID"
	EnvRegion       = "AWS_REGION"
)

// FromEnv builds a Config from the process environment. Supported options:
// WithDotEnv, WithProviderCA, WithIssuerURL, WithAuthBase.
func FromEnv(opt ...Option) (*Config, error) {
	const op = "config.FromEnv"
	opts := getConfigOpts(opt...)
	if opts.withDotEnv != "" {
		if err := godotenv.Load(opts.withDotEnv); err != nil {
			return nil, fmt.Errorf("%s: unable to load dotenv file %q: %w", op, opts.withDotEnv, err)
		}
	}
	c, err := New(
		Literal(os.Getenv(EnvAuthDomain)),
		Literal(os.Getenv(EnvClientID)),
		Literal(os.Getenv(EnvClientSecret)),
		Literal(os.Getenv(EnvUserPoolID)),
		Literal(os.Getenv(EnvRegion)),
		opt...,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}
