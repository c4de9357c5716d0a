package config

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// ApplyVaultSecrets overrides the secret token (and optionally the server
// URL) with values read from a Vault KV v2 secret.
//
// It is a no-op when Vault is disabled. The secret is expected to hold a
// "secret_token" field and may hold a "server" field.
func ApplyVaultSecrets(ctx context.Context, cfg *Config) error {
	if !cfg.Vault.Enabled {
		return nil
	}

	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Vault.Address

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return fmt.Errorf("creating vault client: %w", err)
	}
	if cfg.Vault.Token != "" {
		client.SetToken(cfg.Vault.Token)
	}
	if cfg.Vault.Namespace != "" {
		client.SetNamespace(cfg.Vault.Namespace)
	}

	mount := cfg.Vault.Mount
	if mount == "" {
		mount = "secret"
	}

	secret, err := client.KVv2(mount).Get(ctx, cfg.Vault.SecretsPath)
	if err != nil {
		return fmt.Errorf("reading vault secret %s: %w", cfg.Vault.SecretsPath, err)
	}
	if secret == nil || secret.Data == nil {
		return fmt.Errorf("%w: vault secret %s is empty", ErrConfiguration, cfg.Vault.SecretsPath)
	}

	applySecretData(cfg, secret.Data)
	return nil
}

// applySecretData copies known string fields from a Vault secret payload.
func applySecretData(cfg *Config, data map[string]any) {
	if token, ok := data["secret_token"].(string); ok && token != "" {
		cfg.SecretToken = token
	}
	if server, ok := data["server"].(string); ok && server != "" {
		cfg.Server = server
	}
}
