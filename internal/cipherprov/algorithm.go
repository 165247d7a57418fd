package cipherprov

import "fmt"

// Algorithm identifies one of the CBC cipher variants this adapter
// supports. It corresponds 1:1 to a row of the transform descriptor
// registry.
type Algorithm int

const (
	TripleDESCBC Algorithm = iota
	AES128CBC
	AES192CBC
	AES256CBC
)

func (a Algorithm) String() string {
	switch a {
	case TripleDESCBC:
		return "3DES-CBC"
	case AES128CBC:
		return "AES-128-CBC"
	case AES192CBC:
		return "AES-192-CBC"
	case AES256CBC:
		return "AES-256-CBC"
	default:
		return "unknown"
	}
}

// BlockLen returns the cipher's native block size in bytes.
func BlockLen(alg Algorithm) (int, error) {
	switch alg {
	case TripleDESCBC:
		return 8, nil
	case AES128CBC, AES192CBC, AES256CBC:
		return 16, nil
	default:
		return 0, fmt.Errorf("cipherprov: unknown algorithm %d", alg)
	}
}

// KeyLen returns the cipher's required key length in bytes.
func KeyLen(alg Algorithm) (int, error) {
	switch alg {
	case TripleDESCBC:
		return 24, nil
	case AES128CBC:
		return 16, nil
	case AES192CBC:
		return 24, nil
	case AES256CBC:
		return 32, nil
	default:
		return 0, fmt.Errorf("cipherprov: unknown algorithm %d", alg)
	}
}
