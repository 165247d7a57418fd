// Package keymanager supplies the symmetric key material a
// blockcipher.Transform needs: resolve a keys.Request to keys.Key
// bytes. WrapKey/UnwrapKey/ActiveKeyVersion remain on the interface
// because a deployment still needs to persist a wrapped DEK somewhere
// even though this module never does that persistence itself (this
// core's Non-goals exclude key-material persistence).
package keymanager

import (
	"context"

	"github.com/kenneth/xmlenc-transform/internal/keys"
)

// KeyEnvelope carries a wrapped key and the metadata needed to unwrap
// it later.
type KeyEnvelope struct {
	KeyID      string
	KeyVersion int
	Provider   string
	Ciphertext []byte
}

// Manager abstracts the external key source a driver consults to
// resolve a transform's key requirements, and the KMS-side wrap/unwrap
// operations a driver uses to protect DEKs at rest.
type Manager interface {
	// Provider returns a short identifier (e.g. "static", "cosmian-kmip") for diagnostics.
	Provider() string

	// Resolve returns the key material satisfying req.
	Resolve(ctx context.Context, req keys.Request) (keys.Key, error)

	// WrapKey encrypts plaintext (a DEK) for storage alongside encrypted data.
	WrapKey(ctx context.Context, plaintext []byte, metadata map[string]string) (*KeyEnvelope, error)

	// UnwrapKey decrypts the DEK sealed in envelope.
	UnwrapKey(ctx context.Context, envelope *KeyEnvelope, metadata map[string]string) ([]byte, error)

	// ActiveKeyVersion returns the version identifier of the primary wrapping key.
	ActiveKeyVersion(ctx context.Context) (int, error)

	// HealthCheck verifies the key source is reachable without performing real crypto.
	HealthCheck(ctx context.Context) error

	// Close releases any underlying resources.
	Close(ctx context.Context) error
}
