// Package hardware reports whether the running CPU exposes hardware
// acceleration for AES. Go's crypto/aes already dispatches to hardware
// acceleration internally when available; this package is
// introspection for metrics and diagnostics only, never a code-path
// switch.
package hardware

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Info describes the hardware acceleration available on this host.
type Info struct {
	AESAccelerated bool
	Architecture   string
	OS             string
}

// Detect inspects the running CPU's feature flags.
func Detect() Info {
	info := Info{
		Architecture: runtime.GOARCH,
		OS:           runtime.GOOS,
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		info.AESAccelerated = cpu.X86.HasAES
	case "arm64":
		info.AESAccelerated = cpu.ARM64.HasAES
	case "s390x":
		info.AESAccelerated = cpu.S390X.HasAES
	default:
		info.AESAccelerated = false
	}

	return info
}

// Enabled reports whether hardware acceleration is both available on
// this host and permitted by the given config flags.
func Enabled(enableAESNI, enableARMv8AES bool) bool {
	info := Detect()
	if !info.AESAccelerated {
		return false
	}
	switch info.Architecture {
	case "amd64", "386":
		return enableAESNI
	case "arm64":
		return enableARMv8AES
	default:
		// Supported (e.g. s390x CPACF) but no dedicated config flag:
		// treat detection as authoritative.
		return true
	}
}
