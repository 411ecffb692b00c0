package signer

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	keyFilePerm = 0600
	keyDirPerm  = 0700
)

// fileKey is the key file structure.
type fileKey struct {
	PubKey  []byte `json:"pub_key"`
	PrivKey []byte `json:"priv_key"`
}

// LoadOrGenerate loads a key pair from path, generating and saving a fresh
// one if the file does not exist.
func LoadOrGenerate(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		kp, err := Generate()
		if err != nil {
			return nil, err
		}
		if err := save(path, kp); err != nil {
			return nil, err
		}
		return kp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var key fileKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	if len(key.PrivKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrInvalidKeySize, len(key.PrivKey))
	}

	return FromPrivateKey(key.PrivKey)
}

func save(path string, kp *KeyPair) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, keyDirPerm); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(fileKey{
		PubKey:  kp.pub,
		PrivKey: kp.priv,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode key file: %w", err)
	}

	if err := os.WriteFile(path, data, keyFilePerm); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}
