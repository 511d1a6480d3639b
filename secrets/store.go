package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service name SMTP passwords live under.
const DefaultService = "keen-sender"

// Store keeps one secret per account.
type Store interface {
	// Get returns "" with a nil error when nothing is stored.
	Get(ctx context.Context, account string) (string, error)
	Set(ctx context.Context, account, secret string) error
	Delete(ctx context.Context, account string) error
}

// KeyringStore is a Store on top of the OS keychain (macOS Keychain,
// Secret Service, Windows Credential Manager).
type KeyringStore struct {
	Service string
}

func NewKeyringStore(service string) *KeyringStore {
	service = strings.TrimSpace(service)
	if service == "" {
		service = DefaultService
	}
	return &KeyringStore{Service: service}
}

func (s *KeyringStore) Get(ctx context.Context, account string) (string, error) {
	_ = ctx
	account = strings.TrimSpace(account)
	if account == "" {
		return "", nil
	}
	v, err := keyring.Get(s.Service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keychain read: %w", err)
	}
	return v, nil
}

func (s *KeyringStore) Set(ctx context.Context, account, secret string) error {
	_ = ctx
	account = strings.TrimSpace(account)
	if account == "" {
		return fmt.Errorf("empty account")
	}
	if secret == "" {
		return fmt.Errorf("empty secret for account %q", account)
	}
	if err := keyring.Set(s.Service, account, secret); err != nil {
		return fmt.Errorf("keychain write: %w", err)
	}
	return nil
}

func (s *KeyringStore) Delete(ctx context.Context, account string) error {
	_ = ctx
	account = strings.TrimSpace(account)
	if account == "" {
		return nil
	}
	err := keyring.Delete(s.Service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}
