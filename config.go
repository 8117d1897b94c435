package auth

import (
	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// EnvConfig implements Config from environment variables. The signing
// secret lives here and nowhere else; construct one per process (or per
// test) and hand it to NewAuthenticator.
type EnvConfig struct {
	SigningKey      string   `env:"AUTH_SIGNING_KEY"`
	SigningMethod   string   `env:"AUTH_SIGNING_METHOD" envDefault:"HS256"`
	ContextKey      string   `env:"AUTH_CONTEXT_KEY" envDefault:"identity"`
	TokenExpiration int      `env:"AUTH_TOKEN_EXPIRATION" envDefault:"24"`
	TokenLookup     string   `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme      string   `env:"AUTH_SCHEME" envDefault:"Bearer"`
	Issuer          string   `env:"AUTH_ISSUER"`
	Audience        []string `env:"AUTH_AUDIENCE" envSeparator:","`
}

// LoadConfig parses the environment into an EnvConfig and validates it.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to parse auth environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, wrapValidationError(err)
	}

	return cfg, nil
}

// Validate enforces the minimal settings the token service needs.
func (c EnvConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.SigningMethod, validation.Required, validation.In("HS256")),
		validation.Field(&c.TokenExpiration, validation.Required, validation.Min(1)),
	)
}

var _ Config = (*EnvConfig)(nil)

func (c *EnvConfig) GetSigningKey() string    { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *EnvConfig) GetContextKey() string    { return c.ContextKey }
func (c *EnvConfig) GetTokenExpiration() int  { return c.TokenExpiration }
func (c *EnvConfig) GetTokenLookup() string   { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string    { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string        { return c.Issuer }
func (c *EnvConfig) GetAudience() []string    { return c.Audience }
