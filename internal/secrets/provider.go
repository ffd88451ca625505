// Package secrets resolves credentials from the environment or Azure Key Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource selects where secrets are read from
type SecretSource string

const (
	SourceEnvironment SecretSource = "environment"
	SourceVault       SecretSource = "vault"
	// SourceAuto picks the vault outside local environments
	SourceAuto SecretSource = "auto"
)

// ErrSecretNotFound is returned when no source holds a value for the secret
var ErrSecretNotFound = errors.New("secret not found")

// Getter fetches a single named secret
type Getter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Binding maps one secret onto the configuration. Env, when set and present,
// overrides the vault. Apply receives the resolved value.
type Binding struct {
	Secret   string
	Env      string
	Required bool
	Apply    func(value string)
}

// Provider reads secrets from the environment or a vault Getter
type Provider struct {
	source SecretSource
	vault  Getter
	logger *zap.Logger
}

// ResolveSource turns SourceAuto into a concrete source for the environment
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto && source != "" {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)
	p := &Provider{source: source, logger: logger}

	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, errors.New("vault name required when using vault secret source")
		}
		vault, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		p.vault = vault
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return p, nil
}

// NewProviderWithGetter builds a vault-backed provider around an existing getter
func NewProviderWithGetter(getter Getter, logger *zap.Logger) *Provider {
	return &Provider{source: SourceVault, vault: getter, logger: logger}
}

func (p *Provider) Source() SecretSource {
	return p.source
}

// GetSecret reads name from the provider's source. For the environment
// source name is the variable name.
func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	switch p.source {
	case SourceEnvironment:
		if value := os.Getenv(name); value != "" {
			return value, nil
		}
		return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, name)
	case SourceVault:
		if p.vault == nil {
			return "", errors.New("vault client not initialized")
		}
		return p.vault.GetSecret(ctx, name)
	default:
		return "", fmt.Errorf("unknown secret source: %s", p.source)
	}
}

// Lookup prefers an explicitly set environment variable, then the source
func (p *Provider) Lookup(ctx context.Context, b Binding) (string, error) {
	if b.Env != "" {
		if value := os.Getenv(b.Env); value != "" {
			p.logger.Debug("Using environment override", zap.String("env_name", b.Env))
			return value, nil
		}
	}
	return p.GetSecret(ctx, b.Secret)
}

// Resolve applies every binding. Missing optional secrets are skipped;
// a missing required secret aborts with an error naming it.
func (p *Provider) Resolve(ctx context.Context, bindings []Binding) error {
	for _, b := range bindings {
		value, err := p.Lookup(ctx, b)
		if err != nil || value == "" {
			if b.Required {
				return fmt.Errorf("failed to load secret %s: %w", b.Secret, err)
			}
			p.logger.Debug("Optional secret not set", zap.String("secret_name", b.Secret))
			continue
		}
		b.Apply(value)
	}
	return nil
}
