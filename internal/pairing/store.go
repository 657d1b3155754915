package pairing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Credential is the opaque client-key the TV issues after a pairing approval,
// plus bookkeeping about when it was issued and last replayed.
type Credential struct {
	ClientKey    string `json:"clientKey"`
	IssuedAtMs   int64  `json:"issuedAtMs"`
	LastUsedMs   int64  `json:"lastUsedAtMs,omitempty"`
	ReplacedAtMs int64  `json:"replacedAtMs,omitempty"`
}

// Store persists pairing credentials keyed by TV host.
// All methods are concurrency-safe (internal mutex).
type Store struct {
	mu       sync.Mutex
	byHost   map[string]Credential
	stateDir string
}

const credentialsFile = "credentials.json"

// NewStore loads existing credentials from disk or initializes empty state.
func NewStore(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &Store{
		stateDir: stateDir,
		byHost:   make(map[string]Credential),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// ClientKey returns the cached key for a host, or "" when the host has never
// paired. A present key is replayed verbatim on connect.
func (s *Store) ClientKey(host string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byHost[host]
	if !ok {
		return ""
	}
	cred.LastUsedMs = time.Now().UnixMilli()
	s.byHost[host] = cred
	return cred.ClientKey
}

// SetClientKey stores the key issued by the TV, overwriting any previous one,
// and persists to disk.
func (s *Store) SetClientKey(host, key string) error {
	if host == "" {
		return fmt.Errorf("host is required")
	}
	if key == "" {
		return fmt.Errorf("client key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	cred := Credential{ClientKey: key, IssuedAtMs: now}
	if old, ok := s.byHost[host]; ok && old.ClientKey != key {
		cred.ReplacedAtMs = now
	}
	s.byHost[host] = cred
	return s.save()
}

// Forget removes the credential for a host, forcing interactive pairing on
// the next connect. Removing an unknown host is a no-op.
func (s *Store) Forget(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHost[host]; !ok {
		return nil
	}
	delete(s.byHost, host)
	return s.save()
}

// Hosts returns the hosts with stored credentials.
func (s *Store) Hosts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.byHost))
	for host := range s.byHost {
		out = append(out, host)
	}
	return out
}

// save writes the credential map as JSON using atomic rename.
func (s *Store) save() error {
	target := filepath.Join(s.stateDir, credentialsFile)
	tmp := target + ".tmp"

	data, err := json.MarshalIndent(s.byHost, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", credentialsFile, err)
	}
	return nil
}

// load reads the credential map from disk. A missing file is fresh state.
func (s *Store) load() error {
	path := filepath.Join(s.stateDir, credentialsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", credentialsFile, err)
	}

	if err := json.Unmarshal(data, &s.byHost); err != nil {
		return fmt.Errorf("unmarshal %s: %w", credentialsFile, err)
	}
	return nil
}
