// Package credential keeps alert transport secrets out of the config file.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "fms"

// IMAPPasswordKey is the keyring entry holding the alert mailbox password.
const IMAPPasswordKey = "imap-password"

// ErrNotSet is returned by Get when the key has no stored value.
var ErrNotSet = errors.New("credential not set")

// Keyring reads and writes secrets for the fms service.
type Keyring struct {
	cfg keyring.Config
}

// New returns a Keyring that prefers the platform secret store and falls
// back to an encrypted file under fileDir.
func New(fileDir string) *Keyring {
	return &Keyring{cfg: keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("fms-file-key"),
		KeychainTrustApplication: true,
	}}
}

// NewFile returns a Keyring backed only by encrypted files in dir, for
// headless hosts without a secret service.
func NewFile(dir string) *Keyring {
	k := New(dir)
	k.cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	return k
}

func (k *Keyring) open() (keyring.Keyring, error) {
	ring, err := keyring.Open(k.cfg)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key.
func (k *Keyring) Get(key string) (string, error) {
	ring, err := k.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotSet)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (k *Keyring) Set(key, value string) error {
	ring, err := k.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       "FMS " + key,
		Description: "FMS tracker alert transport secret",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key.
func (k *Keyring) Delete(key string) error {
	ring, err := k.open()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Lookup returns a function that reads key on every call, so a rotated
// password is used without restarting the server.
func (k *Keyring) Lookup(key string) func() (string, error) {
	return func() (string, error) { return k.Get(key) }
}
