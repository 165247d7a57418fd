package hardware

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectReportsArchitecture(t *testing.T) {
	info := Detect()
	assert.Equal(t, runtime.GOARCH, info.Architecture)
	assert.Equal(t, runtime.GOOS, info.OS)
}

func TestEnabledRespectsConfigFlag(t *testing.T) {
	info := Detect()
	if !info.AESAccelerated {
		assert.False(t, Enabled(true, true))
		return
	}
	switch info.Architecture {
	case "amd64", "386":
		assert.False(t, Enabled(false, true))
	case "arm64":
		assert.False(t, Enabled(true, false))
	}
}
