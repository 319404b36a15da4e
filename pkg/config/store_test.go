package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_SaveLoad(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), CredentialsFileName))

	if _, ok := s.Load("missing"); ok {
		t.Fatalf("Load on a missing file should report absent")
	}
	if err := s.Save("endpoint", "https://example.test"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save("model", "m"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if v, ok := s.Load("endpoint"); !ok || v != "https://example.test" {
		t.Fatalf("Load: got %q, %v", v, ok)
	}
	if err := s.Save("endpoint", ""); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	if _, ok := s.Load("endpoint"); ok {
		t.Fatalf("empty save should remove the entry")
	}
	if v, _ := s.Load("model"); v != "m" {
		t.Fatalf("other entries must survive, got %q", v)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("permissions: got %o, want 600", perm)
	}
}

func TestFileStore_MalformedIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), CredentialsFileName)
	writeFile(t, path, "api_key = [[[")
	s := NewFileStore(path)
	if _, ok := s.Load(APIKeyName); ok {
		t.Fatalf("malformed file should read as absent")
	}
}

func TestAPIKey_Obfuscated(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	s := NewFileStore(filepath.Join(t.TempDir(), CredentialsFileName))

	if err := SaveAPIKey(s, "sk-secret-value"); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "sk-secret-value") {
		t.Fatalf("API key stored in clear text")
	}
	key, ok := LoadAPIKey(s)
	if !ok || key != "sk-secret-value" {
		t.Fatalf("LoadAPIKey: got %q, %v", key, ok)
	}

	if err := SaveAPIKey(s, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := LoadAPIKey(s); ok {
		t.Fatalf("cleared key still loads")
	}
}

func TestAPIKey_UndecodableIsAbsent(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	s := NewFileStore(filepath.Join(t.TempDir(), CredentialsFileName))
	if err := s.Save(APIKeyName, "%%% not base64"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := LoadAPIKey(s); ok {
		t.Fatalf("undecodable key should read as absent")
	}
}

func TestAPIKey_EnvOverride(t *testing.T) {
	t.Setenv(APIKeyEnv, "from-env")
	s := NewFileStore(filepath.Join(t.TempDir(), CredentialsFileName))
	if err := SaveAPIKey(s, "from-store"); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}
	if key, _ := LoadAPIKey(s); key != "from-env" {
		t.Fatalf("LoadAPIKey: got %q, want from-env", key)
	}
	if key, ok := LoadAPIKey(nil); !ok || key != "from-env" {
		t.Fatalf("LoadAPIKey(nil): got %q, %v", key, ok)
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"":              "(not set)",
		"abc":           "****",
		"sk-1234567890": "****7890",
	}
	for in, want := range tests {
		if got := MaskKey(in); got != want {
			t.Fatalf("MaskKey(%q): got %q, want %q", in, got, want)
		}
	}
}
