package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coronarchive/tekexport/verify"
)

// KeyStore is a simple local-first store for export signing keys.
//
// Features:
// - Supports ECDSA P-256 keys only (the published wire algorithm)
// - Stores keys on the local filesystem, one file per key version
// - Exports the public halves as a verify.KeyLookup registry
//
// Layout: <Directory>/<key-id>/v<version>.key, PEM-encoded EC private
// keys, 0600. The (key-id, version) pair is exactly the
// (verification_key_id, verification_key_version) lookup key that
// signature files carry.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	KeyID    string
	Versions []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".tekexport", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) keyFilePath(keyID, version string) string {
	return filepath.Join(ks.Directory, keyID, "v"+version+".key")
}

func CheckKeyID(keyID string) error {
	if keyID == "" {
		return errors.New("key id cannot be empty")
	}
	for _, char := range keyID {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' || char == '.' {
			continue
		}
		return fmt.Errorf("invalid character %q in key id", char)
	}
	return nil
}

func CheckVersion(version string) error {
	if version == "" {
		return errors.New("version cannot be empty")
	}
	for _, char := range version {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in version", char)
	}
	return nil
}

// Generate creates and stores a new P-256 signing key under
// (keyID, version). Refuses to overwrite unless overwrite is set.
func (ks *KeyStore) Generate(keyID, version string, overwrite bool) (*ecdsa.PrivateKey, string, error) {
	if err := CheckKeyID(keyID); err != nil {
		return nil, "", err
	}
	if err := CheckVersion(version); err != nil {
		return nil, "", err
	}
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, "", err
	}
	filePath := ks.keyFilePath(keyID, version)
	if err := ks.savePrivateKey(filePath, priv, overwrite); err != nil {
		return nil, "", err
	}
	return priv, filePath, nil
}

// Load reads the private key stored under (keyID, version).
func (ks *KeyStore) Load(keyID, version string) (*ecdsa.PrivateKey, error) {
	if err := CheckKeyID(keyID); err != nil {
		return nil, err
	}
	if err := CheckVersion(version); err != nil {
		return nil, err
	}
	return ks.loadPrivateKey(ks.keyFilePath(keyID, version))
}

// PublicKeyPEM returns the PKIX PEM encoding of the public half of the
// key stored under (keyID, version).
func (ks *KeyStore) PublicKeyPEM(keyID, version string) (string, error) {
	priv, err := ks.Load(keyID, version)
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// Registry loads the public half of every stored key into a
// verify.KeyLookup registry keyed by (key-id, version).
func (ks *KeyStore) Registry() (*verify.StaticRegistry, error) {
	entries, err := ks.ListKeys()
	if err != nil {
		return nil, err
	}
	reg := verify.NewStaticRegistry()
	for _, entry := range entries {
		for _, version := range entry.Versions {
			priv, err := ks.Load(entry.KeyID, version)
			if err != nil {
				return nil, err
			}
			reg.Add(entry.KeyID, version, &priv.PublicKey)
		}
	}
	return reg, nil
}

// ListKeys enumerates stored key ids and their versions, sorted.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var keyIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			keyIDs = append(keyIDs, entry.Name())
		}
	}
	sort.Strings(keyIDs)

	var result []KeyEntry
	for _, keyID := range keyIDs {
		files, rerr := os.ReadDir(filepath.Join(ks.Directory, keyID))
		var versions []string
		if rerr == nil {
			for _, f := range files {
				if f.IsDir() {
					continue
				}
				name := f.Name()
				if strings.HasPrefix(name, "v") && strings.HasSuffix(name, ".key") {
					versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(name, "v"), ".key"))
				}
			}
			sort.Strings(versions)
		}
		result = append(result, KeyEntry{KeyID: keyID, Versions: versions})
	}
	return result, nil
}

func (ks *KeyStore) savePrivateKey(filePath string, priv *ecdsa.PrivateKey, overwrite bool) error {
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := pem.Encode(file, &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadPrivateKey(filePath string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, fmt.Errorf("%s: not an EC private key PEM", filePath)
	}
	return x509.ParseECPrivateKey(block.Bytes)
}
