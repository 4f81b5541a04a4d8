package vault

import (
	"context"
	"fmt"
	"sync"

	"equity-signal-engine/config"

	"github.com/hashicorp/vault/api"
)

// ProviderCredentials is the market-data credential set stored in Vault.
type ProviderCredentials struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// Client wraps the HashiCorp Vault client for provider credential lookups.
type Client struct {
	client *api.Client
	config config.VaultConfig
	mu     sync.RWMutex
	cached *ProviderCredentials
}

// NewClient creates a new Vault client. When Vault is disabled the client is
// a no-op and credential lookups fall through to configuration.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// GetProviderCredentials retrieves the market-data provider credentials.
// Reads are cached for the life of the process; credentials rotate rarely
// enough that a restart is the refresh path.
func (c *Client) GetProviderCredentials(ctx context.Context) (*ProviderCredentials, error) {
	c.mu.RLock()
	if c.cached != nil {
		defer c.mu.RUnlock()
		return c.cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("vault is disabled")
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)

	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider credentials from vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("provider credentials not found")
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	creds := &ProviderCredentials{
		APIKey:  getString(data, "api_key"),
		BaseURL: getString(data, "base_url"),
	}
	if creds.APIKey == "" {
		return nil, fmt.Errorf("provider credentials missing api_key")
	}

	c.mu.Lock()
	c.cached = creds
	c.mu.Unlock()

	return creds, nil
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
