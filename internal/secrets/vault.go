// Package secrets reads the management API token from Vault.
package secrets

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
)

const (
	authTypeToken   = "token"
	authTypeAppRole = "approle"
)

type Options struct {
	Address          string
	Namespace        string
	AuthType         string
	Token            string
	AppRoleMountPath string
	AppRoleRoleID    string
	AppRoleSecretID  string
	Timeout          time.Duration
}

type Vault struct {
	client      *vaultapi.Client
	namespace   string
	addressHost string
}

func NewVault(ctx context.Context, opts Options) (*Vault, error) {
	address := strings.TrimSpace(opts.Address)
	if address == "" {
		return nil, errors.New("vault address is required")
	}
	authType := strings.ToLower(strings.TrimSpace(opts.AuthType))
	if authType == "" {
		authType = authTypeToken
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cfg := vaultapi.DefaultConfig()
	cfg.Address = address
	cfg.HttpClient = &http.Client{Timeout: timeout, Transport: transport()}
	addressHost := ""
	if parsed, err := neturl.Parse(address); err == nil {
		addressHost = strings.ToLower(parsed.Hostname())
	}

	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client setup: %w", err)
	}
	namespace := strings.TrimSpace(opts.Namespace)
	if namespace != "" {
		client.SetNamespace(namespace)
	}

	switch authType {
	case authTypeToken:
		token := strings.TrimSpace(opts.Token)
		if token == "" {
			return nil, errors.New("vault token is required")
		}
		client.SetToken(token)
	case authTypeAppRole:
		roleID := strings.TrimSpace(opts.AppRoleRoleID)
		secretID := strings.TrimSpace(opts.AppRoleSecretID)
		mountPath := strings.Trim(strings.TrimSpace(opts.AppRoleMountPath), "/")
		if mountPath == "" {
			mountPath = "approle"
		}
		if roleID == "" || secretID == "" {
			return nil, errors.New("vault AppRole role ID and secret ID are required")
		}
		loginPath := "auth/" + mountPath + "/login"
		secret, err := client.Logical().WriteWithContext(ctx, loginPath, map[string]any{
			"role_id":   roleID,
			"secret_id": secretID,
		})
		if err != nil {
			return nil, fmt.Errorf("vault approle login at %s: %w", loginPath, err)
		}
		if secret == nil || secret.Auth == nil || strings.TrimSpace(secret.Auth.ClientToken) == "" {
			return nil, errors.New("vault approle login succeeded without client token")
		}
		client.SetToken(secret.Auth.ClientToken)
	default:
		return nil, fmt.Errorf("vault auth type %q is invalid", authType)
	}

	return &Vault{client: client, namespace: namespace, addressHost: addressHost}, nil
}

// ReadString reads one string value from a KV secret. Both KV v1 and KV v2 layouts are
// accepted; for v2 the path is the API path including "data/".
func (v *Vault) ReadString(ctx context.Context, path, key string) (string, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	key = strings.TrimSpace(key)
	if path == "" || key == "" {
		return "", errors.New("vault secret path and key are required")
	}
	secret, err := v.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", path, v.withNamespaceHint(err))
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault read %s: secret not found", path)
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}
	value, ok := data[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("vault read %s: key %q is missing or empty", path, key)
	}
	return strings.TrimSpace(value), nil
}

func (v *Vault) withNamespaceHint(err error) error {
	if err == nil || v.namespace != "" {
		return err
	}
	if !strings.HasSuffix(v.addressHost, ".hashicorp.cloud") {
		return err
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "permission denied") && !strings.Contains(msg, "403") {
		return err
	}
	return fmt.Errorf("%w (tip: set VAULT_NAMESPACE to \"admin\" for HCP Vault Dedicated)", err)
}

func transport() http.RoundTripper {
	base, _ := http.DefaultTransport.(*http.Transport)
	if base == nil {
		return http.DefaultTransport
	}
	t := base.Clone()
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{}
	} else {
		t.TLSClientConfig = t.TLSClientConfig.Clone()
	}
	t.TLSClientConfig.MinVersion = tls.VersionTLS12
	return t
}
