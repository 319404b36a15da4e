package config

import (
	"encoding/base64"
	"errors"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/fsoft72/ghostwrite/internal/utils"
)

const (
	// APIKeyName is the store entry holding the obfuscated API key.
	APIKeyName = "api_key"
	// APIKeyEnv takes precedence over the stored key.
	APIKeyEnv = "GHOSTWRITE_API_KEY"
)

// obfuscation pad; this keeps the key out of casual sight, it is not encryption.
var pad = []byte("ghostwrite-inline-suggestions")

// Store is a small name/value persistence contract. Load reports false for absent or unreadable entries.
type Store interface {
	Save(name, value string) error
	Load(name string) (string, bool)
}

// FileStore keeps name/value pairs in a TOML file readable only by the owner.
// Saving an empty value removes the entry.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.read()
	if value == "" {
		delete(entries, name)
	} else {
		entries[name] = value
	}
	return utils.SaveTOMLFileMode(entries, s.path, 0600)
}

func (s *FileStore) Load(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.read()[name]
	return v, ok && v != ""
}

// read returns every entry; a missing or malformed file reads as empty.
func (s *FileStore) read() map[string]string {
	entries := make(map[string]string)
	if _, err := toml.DecodeFile(s.path, &entries); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("Ignoring malformed credentials file %s: %v", s.path, err)
		}
		return make(map[string]string)
	}
	return entries
}

// SaveAPIKey stores key obfuscated. An empty key clears the entry.
func SaveAPIKey(s Store, key string) error {
	if key == "" {
		return s.Save(APIKeyName, "")
	}
	return s.Save(APIKeyName, obfuscate(key))
}

// LoadAPIKey returns the key from the environment or, failing that, from the store.
func LoadAPIKey(s Store) (string, bool) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key, true
	}
	if s == nil {
		return "", false
	}
	raw, ok := s.Load(APIKeyName)
	if !ok {
		return "", false
	}
	key, err := deobfuscate(raw)
	if err != nil {
		log.Warnf("Ignoring stored API key: %v", err)
		return "", false
	}
	return key, true
}

// MaskKey hides all but the last four characters of key for display.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	r := []rune(key)
	if len(r) <= 4 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}

func obfuscate(s string) string {
	return base64.StdEncoding.EncodeToString(xor([]byte(s)))
}

func deobfuscate(s string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(xor(data)), nil
}

func xor(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ pad[i%len(pad)]
	}
	return out
}
