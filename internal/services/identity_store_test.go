package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileIdentityStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "identity.json")
	s := NewFileIdentityStore(path, nil)

	if _, ok, err := s.Get(ctx); err != nil || ok {
		t.Fatalf("expected empty cache, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "anon_1_abc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, err := s.Get(ctx)
	if err != nil || !ok || got != "anon_1_abc" {
		t.Fatalf("Get = %q %v %v", got, ok, err)
	}

	// A second store on the same file sees the value
	other := NewFileIdentityStore(path, nil)
	if got, ok, _ := other.Get(ctx); !ok || got != "anon_1_abc" {
		t.Fatalf("value not durable: %q %v", got, ok)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), IdentityCacheKey) {
		t.Errorf("cache file missing key %q: %s", IdentityCacheKey, data)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx); ok {
		t.Fatal("identity still cached after Clear")
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
}

func TestFileIdentityStore_Sealed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity.json")
	key := []byte(strings.Repeat("k", 32))
	s := NewFileIdentityStore(path, key)

	if err := s.Set(ctx, "anon_1700000000000_abcdef123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "anon_") {
		t.Fatalf("identity stored in plaintext: %s", data)
	}
	got, ok, err := s.Get(ctx)
	if err != nil || !ok || got != "anon_1700000000000_abcdef123" {
		t.Fatalf("Get = %q %v %v", got, ok, err)
	}

	wrong := NewFileIdentityStore(path, make([]byte, 32))
	if _, _, err := wrong.Get(ctx); !errors.Is(err, ErrIdentityCacheCorrupt) {
		t.Fatalf("expected ErrIdentityCacheCorrupt with the wrong key, got %v", err)
	}
}

func TestFileIdentityStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, _, err := NewFileIdentityStore(path, nil).Get(context.Background())
	if !errors.Is(err, ErrIdentityCacheCorrupt) {
		t.Fatalf("expected ErrIdentityCacheCorrupt, got %v", err)
	}
}

func TestFileIdentityStore_RejectsEmpty(t *testing.T) {
	s := NewFileIdentityStore(filepath.Join(t.TempDir(), "identity.json"), nil)
	if err := s.Set(context.Background(), ""); err == nil {
		t.Fatal("expected error storing an empty identity")
	}
}
