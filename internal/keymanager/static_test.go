package keymanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/xmlenc-transform/internal/keys"
)

func TestStaticResolvesConfiguredKey(t *testing.T) {
	mgr, err := NewStatic(map[string]string{
		"k1": "AAAAAAAAAAAAAAAAAAAAAA==", // 16 zero bytes
	})
	require.NoError(t, err)

	key, err := mgr.Resolve(context.Background(), keys.Request{KeyID: "k1", Type: keys.Symmetric})
	require.NoError(t, err)
	assert.Equal(t, "k1", key.ID)
	assert.Len(t, key.Bytes, 16)
}

func TestStaticResolveUnknownKeyFails(t *testing.T) {
	mgr, err := NewStatic(nil)
	require.NoError(t, err)

	_, err = mgr.Resolve(context.Background(), keys.Request{KeyID: "missing"})
	assert.Error(t, err)
}

func TestStaticRejectsInvalidBase64(t *testing.T) {
	_, err := NewStatic(map[string]string{"k1": "not-base64!!"})
	assert.Error(t, err)
}

func TestStaticWrapUnwrapRoundTrip(t *testing.T) {
	mgr, err := NewStatic(nil)
	require.NoError(t, err)

	plaintext := []byte("a data encryption key")
	env, err := mgr.WrapKey(context.Background(), plaintext, nil)
	require.NoError(t, err)
	require.NotNil(t, env)

	unwrapped, err := mgr.UnwrapKey(context.Background(), env, nil)
	require.NoError(t, err)
	assert.Equal(t, plaintext, unwrapped)
}

func TestStaticHealthCheckAndClose(t *testing.T) {
	mgr, err := NewStatic(nil)
	require.NoError(t, err)
	assert.NoError(t, mgr.HealthCheck(context.Background()))
	assert.NoError(t, mgr.Close(context.Background()))

	version, err := mgr.ActiveKeyVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}
