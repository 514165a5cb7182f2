package pipeline

import (
	"context"
	"errors"
	"strings"

	"ticketpin-workers/internal/common/secrets"
)

// Secret names the hosting environment must provide.
const (
	SecretImageAPIKey   = "imageApiKey"
	SecretPinningAPIKey = "pinningApiKey"
)

// CredentialSource resolves the credential set at invocation time.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials is a fixed credential set.
type StaticCredentials Credentials

func (c StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(c), nil
}

// StoreCredentials reads both keys from a secret store on every call.
type StoreCredentials struct {
	store secrets.Store
}

func NewStoreCredentials(store secrets.Store) *StoreCredentials {
	return &StoreCredentials{store: store}
}

func (s *StoreCredentials) Credentials(ctx context.Context) (Credentials, error) {
	imageKey, err := lookupSecret(ctx, s.store, SecretImageAPIKey)
	if err != nil {
		return Credentials{}, err
	}
	pinningKey, err := lookupSecret(ctx, s.store, SecretPinningAPIKey)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{ImageAPIKey: imageKey, PinningAPIKey: pinningKey}, nil
}

// lookupSecret maps an absent secret to "", leaving the guard to report it.
func lookupSecret(ctx context.Context, store secrets.Store, name string) (string, error) {
	v, err := store.Get(ctx, name)
	if errors.Is(err, secrets.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// CheckCredentials fails fast when either key is empty. It runs before any
// upstream call is attempted.
func CheckCredentials(c Credentials) error {
	if strings.TrimSpace(c.ImageAPIKey) == "" {
		return configurationError(SecretImageAPIKey+" is not set", nil)
	}
	if strings.TrimSpace(c.PinningAPIKey) == "" {
		return configurationError(SecretPinningAPIKey+" is not set", nil)
	}
	return nil
}
