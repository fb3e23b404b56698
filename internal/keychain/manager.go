// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores pinotboard secrets in the OS credential store: the
// Pinot broker token and the DSN of an optional Postgres mirror.
//
// Supported stores are the macOS Keychain, Windows Credential Manager, and on
// Linux the Secret Service or KWallet, with `pass` as a fallback everywhere it
// is installed. There is no plaintext file fallback.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"

	apperrors "pinotboard/cli/internal/errors"
)

var (
	globalManager *Manager
	mu            sync.Mutex
)

// ErrNotFound is returned when a secret has not been stored.
var ErrNotFound = errors.New("secret not found in keychain")

// ServiceName identifies our credential store namespace.
const ServiceName = "pinotboard"

// Keys used for storing secrets.
const (
	KeyBrokerToken = "broker_token"
	KeyStoreDSN    = "store_dsn"
)

// Manager provides thread-safe access to the credential store.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the native credential store for this OS.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.SecretStore, "credential store unavailable", err)
	}
	return &Manager{ring: ring}, nil
}

// NewManagerWithKeyring wraps an already opened keyring.
func NewManagerWithKeyring(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the process-wide manager, opening it on first use.
// A failed open is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

func backendsFor(goos string) []keyring.BackendType {
	switch goos {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend}
	default:
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	}
}

func openRing() (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: backendsFor(runtime.GOOS),
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
		KWalletAppID:    ServiceName,
		KWalletFolder:   ServiceName,
		// Secrets are small and read on every command; skip the per-item prompt.
		KeychainTrustApplication: true,
	}
	return keyring.Open(cfg)
}

func (m *Manager) set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key}); err != nil {
		return apperrors.Wrap(apperrors.SecretStore, "failed to store "+key, err)
	}
	return nil
}

func (m *Manager) get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, err := m.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.SecretStore, "failed to read "+key, err)
	}
	if len(it.Data) == 0 {
		return "", ErrNotFound
	}
	return string(it.Data), nil
}

func (m *Manager) remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.ring.Remove(key)
}

// SaveBrokerToken stores the broker bearer token.
func (m *Manager) SaveBrokerToken(token string) error { return m.set(KeyBrokerToken, token) }

// LoadBrokerToken returns the stored broker token or ErrNotFound.
func (m *Manager) LoadBrokerToken() (string, error) { return m.get(KeyBrokerToken) }

// SaveStoreDSN stores the Postgres DSN.
func (m *Manager) SaveStoreDSN(dsn string) error { return m.set(KeyStoreDSN, dsn) }

// LoadStoreDSN returns the stored Postgres DSN or ErrNotFound.
func (m *Manager) LoadStoreDSN() (string, error) { return m.get(KeyStoreDSN) }

// ClearAll removes every pinotboard secret. Missing keys are ignored.
func (m *Manager) ClearAll() {
	m.remove(KeyBrokerToken)
	m.remove(KeyStoreDSN)
}
