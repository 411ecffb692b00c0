// Package signer provides ed25519 key pairs for validators and a
// file-backed key store, used to sign block votes submitted to the
// registry.
package signer
