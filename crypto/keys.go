// Package crypto holds the ed25519 identities that sign contract messages.
// An identity is the lowercase hex encoding of a 32-byte public key.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// PrivateKey wraps ed25519 private key bytes.
type PrivateKey []byte

// PublicKey wraps ed25519 public key bytes.
type PublicKey []byte

// GenerateKeyPair generates a new ed25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// Hex returns the identity string for pub.
func (pub PublicKey) Hex() string {
	return hex.EncodeToString(pub)
}

func (priv PrivateKey) Hex() string {
	return hex.EncodeToString(priv)
}

// Public derives the ed25519 public key from the private key.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

// PubKeyFromHex decodes an identity back into a public key.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := decodeFixed(s, ed25519.PublicKeySize)
	if err != nil {
		return nil, fmt.Errorf("pubkey: %w", err)
	}
	return PublicKey(b), nil
}

// PrivKeyFromHex decodes a hex-encoded private key.
func PrivKeyFromHex(s string) (PrivateKey, error) {
	b, err := decodeFixed(s, ed25519.PrivateKeySize)
	if err != nil {
		return nil, fmt.Errorf("privkey: %w", err)
	}
	return PrivateKey(b), nil
}

func decodeFixed(s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("want %d bytes, got %d", size, len(b))
	}
	return b, nil
}

// ValidateAddress checks that s is a canonical identity: the lowercase
// hex encoding of an ed25519 public key.
func ValidateAddress(s string) error {
	if s == "" {
		return errors.New("empty address")
	}
	if strings.ToLower(s) != s {
		return fmt.Errorf("address %q is not lowercase hex", s)
	}
	_, err := PubKeyFromHex(s)
	return err
}
