package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/solatis/ducktest/internal/types"
)

// KeyStore persists issued key hashes. Implemented by *db.Store.
type KeyStore interface {
	InsertAPIKey(ctx context.Context, apiKeyID, clientID string, keyHash []byte) error
}

// IssuedKey is a freshly issued API key. Key is shown once and never stored.
type IssuedKey struct {
	APIKeyID string
	ClientID types.ClientID
	SecretID string
	Key      string
}

// IssueKey generates a key for clientID, signed by the secret named
// secretID, and stores only its HMAC. An empty secretID is allowed when
// exactly one secret is configured.
func IssueKey(ctx context.Context, store KeyStore, secrets map[string][]byte, secretID string, clientID types.ClientID) (IssuedKey, error) {
	if strings.TrimSpace(string(clientID)) == "" {
		return IssuedKey{}, fmt.Errorf("client id required")
	}

	if secretID == "" {
		if len(secrets) != 1 {
			ids := make([]string, 0, len(secrets))
			for id := range secrets {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			return IssuedKey{}, fmt.Errorf("secret id required when %d secrets are configured %v", len(secrets), ids)
		}
		for id := range secrets {
			secretID = id
		}
	}

	secret, ok := secrets[secretID]
	if !ok {
		return IssuedKey{}, fmt.Errorf("unknown secret id %q", secretID)
	}

	key, err := GenerateAPIKey(secretID)
	if err != nil {
		return IssuedKey{}, err
	}

	apiKeyID := uuid.Must(uuid.NewV7()).String()
	if err := store.InsertAPIKey(ctx, apiKeyID, string(clientID), ComputeHMAC(secret, key)); err != nil {
		return IssuedKey{}, fmt.Errorf("store api key: %w", err)
	}

	return IssuedKey{
		APIKeyID: apiKeyID,
		ClientID: clientID,
		SecretID: secretID,
		Key:      key,
	}, nil
}
