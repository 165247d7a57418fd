package keymanager

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/ovh/kmip-go"
	"github.com/ovh/kmip-go/kmipclient"
	"github.com/ovh/kmip-go/payloads"

	"github.com/kenneth/xmlenc-transform/internal/keys"
)

// KeyReference names a wrapping key held by the KMIP server and the
// version this deployment currently considers it to be at.
type KeyReference struct {
	ID      string
	Version int
}

// KMIPOptions configures a KMIP manager.
type KMIPOptions struct {
	Endpoint  string
	Keys      []KeyReference
	TLSConfig *tls.Config
	Timeout   time.Duration
	Provider  string
}

// KMIP resolves symmetric keys and wraps/unwraps DEKs against a KMIP
// 1.4-speaking server (e.g. Cosmian KMS), using github.com/ovh/kmip-go
// as the wire client. It does not perform cryptography locally — every
// Encrypt/Decrypt call is a request to the server, so the plaintext
// wrapping key never leaves the KMS.
type KMIP struct {
	client   *kmipclient.Client
	provider string
	timeout  time.Duration

	mu           sync.RWMutex
	keysByID     map[string]int // keyID -> version
	activeKeyID  string
	activeVer    int
}

// NewKMIP dials endpoint and returns a ready KMIP manager.
func NewKMIP(opts KMIPOptions) (*KMIP, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("keymanager: kmip: at least one wrapping key reference is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Provider == "" {
		opts.Provider = "kmip"
	}

	client, err := kmipclient.Dial(opts.Endpoint,
		kmipclient.WithTLSConfig(opts.TLSConfig),
		kmipclient.WithTimeout(opts.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("keymanager: kmip: dial %s: %w", opts.Endpoint, err)
	}

	byID := make(map[string]int, len(opts.Keys))
	for _, k := range opts.Keys {
		byID[k.ID] = k.Version
	}
	active := opts.Keys[0]

	return &KMIP{
		client:      client,
		provider:    opts.Provider,
		timeout:     opts.Timeout,
		keysByID:    byID,
		activeKeyID: active.ID,
		activeVer:   active.Version,
	}, nil
}

func (k *KMIP) Provider() string { return k.provider }

// Resolve is not meaningful for a key manager whose symmetric keys
// never leave the server: a blockcipher.Transform needs raw key bytes,
// which this manager by design never has. Drivers that need CBC key
// material from a KMIP-backed deployment should unwrap a previously
// wrapped DEK via UnwrapKey instead, and feed those bytes into
// Transform.SetKey directly.
func (k *KMIP) Resolve(_ context.Context, req keys.Request) (keys.Key, error) {
	return keys.Key{}, fmt.Errorf("keymanager: kmip: Resolve is unsupported; unwrap a DEK via UnwrapKey for key %q", req.KeyID)
}

func (k *KMIP) WrapKey(ctx context.Context, plaintext []byte, metadata map[string]string) (*KeyEnvelope, error) {
	keyID := k.activeKeyID
	if id, ok := metadata["key_id"]; ok && id != "" {
		keyID = id
	}

	resp, err := k.client.Encrypt(ctx, payloads.EncryptRequestPayload{
		UniqueIdentifier: kmip.String(keyID),
		Data:             plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("keymanager: kmip: encrypt: %w", err)
	}

	k.mu.RLock()
	version := k.keysByID[keyID]
	k.mu.RUnlock()

	return &KeyEnvelope{
		KeyID:      keyID,
		KeyVersion: version,
		Provider:   k.provider,
		Ciphertext: resp.Data,
	}, nil
}

func (k *KMIP) UnwrapKey(ctx context.Context, envelope *KeyEnvelope, _ map[string]string) ([]byte, error) {
	keyID := envelope.KeyID
	if keyID == "" {
		// Fall back to the active key when the envelope predates
		// recording a key ID explicitly.
		k.mu.RLock()
		keyID = k.activeKeyID
		k.mu.RUnlock()
	}

	resp, err := k.client.Decrypt(ctx, payloads.DecryptRequestPayload{
		UniqueIdentifier: kmip.String(keyID),
		Data:             envelope.Ciphertext,
	})
	if err != nil {
		return nil, fmt.Errorf("keymanager: kmip: decrypt: %w", err)
	}
	return resp.Data, nil
}

func (k *KMIP) ActiveKeyVersion(_ context.Context) (int, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.activeVer, nil
}

// HealthCheck performs a lightweight Get on the active wrapping key to
// confirm the server is reachable and the key still exists, without
// running any encrypt/decrypt operation.
func (k *KMIP) HealthCheck(ctx context.Context) error {
	k.mu.RLock()
	keyID := k.activeKeyID
	k.mu.RUnlock()

	_, err := k.client.Get(ctx, payloads.GetRequestPayload{
		UniqueIdentifier: kmip.String(keyID),
	})
	if err != nil {
		return fmt.Errorf("keymanager: kmip: health check: %w", err)
	}
	return nil
}

func (k *KMIP) Close(_ context.Context) error {
	return k.client.Close()
}
