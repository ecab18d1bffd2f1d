package secrets

import (
	"context"
	"errors"

	"github.com/ceros-embed/ceros-embed/internal/config"
)

// ResolveCMAToken returns CMA_TOKEN when set and otherwise reads the token from Vault.
func ResolveCMAToken(ctx context.Context, cfg config.Config) (string, error) {
	if cfg.CMAToken != "" {
		return cfg.CMAToken, nil
	}
	if !cfg.UsesVaultToken() {
		return "", errors.New("no management API token configured")
	}
	v, err := NewVault(ctx, Options{
		Address:          cfg.VaultAddr,
		Namespace:        cfg.VaultNamespace,
		AuthType:         cfg.VaultAuthType,
		Token:            cfg.VaultToken,
		AppRoleMountPath: cfg.VaultAppRoleMount,
		AppRoleRoleID:    cfg.VaultAppRoleID,
		AppRoleSecretID:  cfg.VaultAppRoleSecret,
		Timeout:          cfg.HTTPTimeout,
	})
	if err != nil {
		return "", err
	}
	return v.ReadString(ctx, cfg.VaultCMATokenPath, cfg.VaultCMATokenKey)
}
