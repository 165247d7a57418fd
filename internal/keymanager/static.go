package keymanager

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/kenneth/xmlenc-transform/internal/keys"
)

// Static resolves keys from a fixed, in-memory map — config-sourced key
// material for local development and testing. It does not wrap or
// unwrap DEKs with any cipher of its own; WrapKey/UnwrapKey are
// identity operations here, clearly unsuitable for production use
// (this core never persists key material itself, and this manager
// exists only to exercise the keymanager.Manager contract without
// standing up a real KMS).
type Static struct {
	keys map[string][]byte
}

// NewStatic builds a Static manager from a map of key ID to
// base64-encoded key bytes, as read from config.StaticConfig.
func NewStatic(encoded map[string]string) (*Static, error) {
	decoded := make(map[string][]byte, len(encoded))
	for id, b64 := range encoded {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("keymanager: decode key %q: %w", id, err)
		}
		decoded[id] = raw
	}
	return &Static{keys: decoded}, nil
}

func (s *Static) Provider() string { return "static" }

func (s *Static) Resolve(_ context.Context, req keys.Request) (keys.Key, error) {
	raw, ok := s.keys[req.KeyID]
	if !ok {
		return keys.Key{}, fmt.Errorf("keymanager: unknown key id %q", req.KeyID)
	}
	return keys.Key{ID: req.KeyID, Bytes: append([]byte(nil), raw...)}, nil
}

// WrapKey returns plaintext unchanged, tagged with the static
// provider's identity. This is a development convenience, never a
// production wrapping strategy.
func (s *Static) WrapKey(_ context.Context, plaintext []byte, _ map[string]string) (*KeyEnvelope, error) {
	return &KeyEnvelope{
		Provider:   s.Provider(),
		KeyVersion: 1,
		Ciphertext: append([]byte(nil), plaintext...),
	}, nil
}

func (s *Static) UnwrapKey(_ context.Context, envelope *KeyEnvelope, _ map[string]string) ([]byte, error) {
	return append([]byte(nil), envelope.Ciphertext...), nil
}

func (s *Static) ActiveKeyVersion(_ context.Context) (int, error) { return 1, nil }

func (s *Static) HealthCheck(_ context.Context) error { return nil }

func (s *Static) Close(_ context.Context) error { return nil }
