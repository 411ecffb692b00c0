package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

// Errors
var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrNoPrivateKey   = errors.New("no private key loaded")
)

// KeyPair holds a validator's signing keys.
type KeyPair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// Generate creates a fresh random key pair.
func Generate() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &KeyPair{pub: pub, priv: priv}, nil
}

// FromPrivateKey wraps an existing private key.
func FromPrivateKey(priv ed25519.PrivateKey) (*KeyPair, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrInvalidKeySize, len(priv))
	}
	return &KeyPair{
		pub:  priv.Public().(ed25519.PublicKey),
		priv: append(ed25519.PrivateKey(nil), priv...),
	}, nil
}

// PublicKey returns a copy of the public key.
func (kp *KeyPair) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), kp.pub...)
}

// Sign signs a message.
func (kp *KeyPair) Sign(msg []byte) ([]byte, error) {
	if len(kp.priv) != ed25519.PrivateKeySize {
		return nil, ErrNoPrivateKey
	}
	return ed25519.Sign(kp.priv, msg), nil
}

// Verify checks a signature against a public key.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
