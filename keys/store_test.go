package keys

import (
	"testing"
)

func TestKeyStore_GenerateLoadRoundTrip(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}
	priv, path, err := ks.Generate("at", "1", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if path == "" {
		t.Fatalf("expected key file path")
	}
	loaded, err := ks.Load("at", "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Equal(priv) {
		t.Fatalf("loaded key differs from generated key")
	}
}

func TestKeyStore_NoOverwriteByDefault(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}
	if _, _, err := ks.Generate("at", "1", false); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, _, err := ks.Generate("at", "1", false); err == nil {
		t.Fatalf("expected error generating over an existing key")
	}
	if _, _, err := ks.Generate("at", "1", true); err != nil {
		t.Fatalf("Generate overwrite: %v", err)
	}
}

func TestKeyStore_RegistryAndList(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}
	privAT, _, err := ks.Generate("at", "1", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, _, err := ks.Generate("at", "2", false); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, _, err := ks.Generate("de", "1", false); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	entries, err := ks.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(entries) != 2 || entries[0].KeyID != "at" || entries[1].KeyID != "de" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if len(entries[0].Versions) != 2 {
		t.Fatalf("expected 2 versions for at, got %v", entries[0].Versions)
	}

	reg, err := ks.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	pub, ok := reg.PublicKey("at", "1")
	if !ok {
		t.Fatalf("registry missing at/1")
	}
	if !privAT.PublicKey.Equal(pub) {
		t.Fatalf("registry public key mismatch")
	}
	if _, ok := reg.PublicKey("at", "9"); ok {
		t.Fatalf("unexpected key for unknown version")
	}
}

func TestKeyStore_RejectsBadNames(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}
	if _, _, err := ks.Generate("../escape", "1", false); err == nil {
		t.Fatalf("expected invalid key id error")
	}
	if _, _, err := ks.Generate("at", "1/2", false); err == nil {
		t.Fatalf("expected invalid version error")
	}
}
