package verify

import "crypto"

type registryKey struct {
	id, version string
}

// StaticRegistry is a map-backed KeyLookup. Populate it up front with
// Add; lookups are read-only afterwards and safe for concurrent use
// during an assembly.
type StaticRegistry struct {
	keys map[registryKey]crypto.PublicKey
}

// NewStaticRegistry returns an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{keys: make(map[registryKey]crypto.PublicKey)}
}

// Add registers a public key under (keyID, keyVersion). A later Add for
// the same pair replaces the earlier key.
func (r *StaticRegistry) Add(keyID, keyVersion string, pub crypto.PublicKey) {
	r.keys[registryKey{keyID, keyVersion}] = pub
}

// PublicKey implements KeyLookup.
func (r *StaticRegistry) PublicKey(keyID, keyVersion string) (crypto.PublicKey, bool) {
	if r == nil {
		return nil, false
	}
	pub, ok := r.keys[registryKey{keyID, keyVersion}]
	return pub, ok
}
