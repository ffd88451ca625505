package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

const defaultCacheTTL = 5 * time.Minute

// VaultConfig holds configuration for the vault client
type VaultConfig struct {
	VaultName    string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// VaultClient reads the latest version of secrets from Azure Key Vault
type VaultClient struct {
	client *azsecrets.Client
	cache  *ttlCache // nil when caching is off
	logger *zap.Logger
}

// NewVaultClient authenticates with DefaultAzureCredential, which covers
// environment credentials, managed identity and the Azure CLI.
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", cfg.VaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	v := &VaultClient{client: client, logger: logger}
	if cfg.CacheEnabled {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		v.cache = newTTLCache(ttl)
	}

	logger.Info("Azure Key Vault client initialized",
		zap.String("vault_url", vaultURL),
		zap.Bool("cache_enabled", v.cache != nil),
	)
	return v, nil
}

func (v *VaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	if v.cache != nil {
		if value, ok := v.cache.get(name, time.Now()); ok {
			return value, nil
		}
	}

	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		v.logger.Error("Failed to get secret from Key Vault", zap.String("secret_name", name), zap.Error(err))
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("%w: %s has no value", ErrSecretNotFound, name)
	}

	if v.cache != nil {
		v.cache.put(name, *resp.Value, time.Now())
	}
	return *resp.Value, nil
}

// ttlCache keeps secret values until they expire
type ttlCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *ttlCache) get(name string, now time.Time) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok || !now.Before(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (c *ttlCache) put(name, value string, now time.Time) {
	c.mu.Lock()
	c.entries[name] = cacheEntry{value: value, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}
