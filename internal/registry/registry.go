// Package registry holds the static table of supported transform
// descriptors — the algorithm identifiers a driver may request by name
// — and a config-driven allow-list filter over it.
package registry

import (
	"fmt"

	"github.com/ryanuber/go-glob"

	"github.com/kenneth/xmlenc-transform/internal/cipherprov"
)

// Descriptor names one supported algorithm and the URI-like identifier
// a driver would use to request it (the original xmlsec transforms are
// keyed by XML Security algorithm URIs; this core never parses XML, so
// only the identifier string survives).
type Descriptor struct {
	Name      string
	Algorithm cipherprov.Algorithm
	BlockLen  int
	KeyLen    int
}

var descriptors = []Descriptor{
	{Name: "tripledes-cbc", Algorithm: cipherprov.TripleDESCBC, BlockLen: 8, KeyLen: 24},
	{Name: "aes128-cbc", Algorithm: cipherprov.AES128CBC, BlockLen: 16, KeyLen: 16},
	{Name: "aes192-cbc", Algorithm: cipherprov.AES192CBC, BlockLen: 16, KeyLen: 24},
	{Name: "aes256-cbc", Algorithm: cipherprov.AES256CBC, BlockLen: 16, KeyLen: 32},
}

// All returns every descriptor this core knows about, regardless of
// any configured allow-list.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Lookup returns the descriptor registered under name.
func Lookup(name string) (Descriptor, error) {
	for _, d := range descriptors {
		if d.Name == name {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("registry: unknown transform %q", name)
}

// Registry is a Lookup restricted to an allow-list of glob patterns
// (e.g. "aes*-cbc" or exact names). An empty allow-list means allow
// all — a deployment that wants to refuse every algorithm should omit
// the registry entirely rather than configure an empty list.
type Registry struct {
	allow []string
}

// New returns a Registry that only permits descriptors whose name
// matches one of the given glob patterns.
func New(allow []string) *Registry {
	return &Registry{allow: allow}
}

// Allowed reports whether name is permitted by the configured
// allow-list.
func (r *Registry) Allowed(name string) bool {
	if len(r.allow) == 0 {
		return true
	}
	for _, pattern := range r.allow {
		if glob.Glob(pattern, name) {
			return true
		}
	}
	return false
}

// Lookup returns the descriptor registered under name, failing if it
// is not permitted by the registry's allow-list.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	if !r.Allowed(name) {
		return Descriptor{}, fmt.Errorf("registry: %q is not in the configured allow-list", name)
	}
	return Lookup(name)
}

// List returns every descriptor permitted by the registry's allow-list.
func (r *Registry) List() []Descriptor {
	all := All()
	out := all[:0:0]
	for _, d := range all {
		if r.Allowed(d.Name) {
			out = append(out, d)
		}
	}
	return out
}
