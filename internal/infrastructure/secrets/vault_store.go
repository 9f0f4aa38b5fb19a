// Package secrets implements the customer client-secret store. The raw secret
// lives here; customer records carry only the reference returned by Store.
package secrets

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/internal/domain/service"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

// VaultStore is a Vault KV-v2 backed secret store.
type VaultStore struct {
	client    *vault.Client
	mountPath string
	logger    logger.Logger
}

// NewVaultStore connects to Vault using the configured address and token.
func NewVaultStore(cfg *config.VaultConfig, log logger.Logger) (*VaultStore, error) {
	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultStore{
		client:    client,
		mountPath: cfg.MountPath,
		logger:    log.WithComponent("vault-store"),
	}, nil
}

var _ service.SecretStore = (*VaultStore)(nil)

// Store writes the client secret under a per-customer path and returns the
// path as the reference.
func (s *VaultStore) Store(ctx context.Context, customerID, secret string) (string, error) {
	ref := fmt.Sprintf("customers/%s", customerID)
	_, err := s.client.KVv2(s.mountPath).Put(ctx, ref, map[string]interface{}{
		"client_secret": secret,
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to store customer secret", err,
			logger.String("customer_id", customerID),
		)
		return "", errors.ErrInternal(err)
	}
	return ref, nil
}

// Resolve reads the client secret behind a reference.
func (s *VaultStore) Resolve(ctx context.Context, ref string) (string, error) {
	kv, err := s.client.KVv2(s.mountPath).Get(ctx, ref)
	if err != nil {
		s.logger.Error(ctx, "Failed to resolve customer secret", err, logger.String("ref", ref))
		return "", errors.ErrInternal(err)
	}
	secret, ok := kv.Data["client_secret"].(string)
	if !ok || secret == "" {
		return "", errors.ErrInternal(fmt.Errorf("secret reference %s holds no client_secret", ref))
	}
	return secret, nil
}

// Delete removes the secret behind a reference.
func (s *VaultStore) Delete(ctx context.Context, ref string) error {
	if err := s.client.KVv2(s.mountPath).Delete(ctx, ref); err != nil {
		return errors.ErrInternal(err)
	}
	return nil
}
