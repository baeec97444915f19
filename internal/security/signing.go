// Package security signs history records with ed25519 keys.
package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

var ErrKeySize = errors.New("invalid key size")

// GenerateKeyPair creates a new ed25519 key pair.
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// SaveKeyPair writes both keys hex encoded, readable by the owner only.
func SaveKeyPair(fs afero.Fs, pub ed25519.PublicKey, priv ed25519.PrivateKey, pubPath, privPath string) error {
	if err := afero.WriteFile(fs, pubPath, []byte(hex.EncodeToString(pub)), 0o600); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	if err := afero.WriteFile(fs, privPath, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	return nil
}

// LoadPrivateKey reads a hex encoded ed25519 private key.
func LoadPrivateKey(fs afero.Fs, path string) (ed25519.PrivateKey, error) {
	key, err := loadHex(fs, path, ed25519.PrivateKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PrivateKey(key), nil
}

// LoadPublicKey reads a hex encoded ed25519 public key.
func LoadPublicKey(fs afero.Fs, path string) (ed25519.PublicKey, error) {
	key, err := loadHex(fs, path, ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(key), nil
}

func loadHex(fs afero.Fs, path string, size int) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding key %s: %w", path, err)
	}
	if len(key) != size {
		return nil, fmt.Errorf("%s: %w", path, ErrKeySize)
	}
	return key, nil
}

// SignData signs data and returns the hex signature.
func SignData(priv ed25519.PrivateKey, data []byte) string {
	return hex.EncodeToString(ed25519.Sign(priv, data))
}

// VerifySignatureFromHex checks a hex signature against a hex public key.
func VerifySignatureFromHex(pubHex string, data []byte, sigHex string) (bool, error) {
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return false, err
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, ErrKeySize
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
}
