package sessionclient

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Credentials is what survives a restart: the access token, the last known
// user, and whether the user asked to be remembered.
type Credentials struct {
	AccessToken string `json:"access_token,omitempty"`
	User        *User  `json:"user,omitempty"`
	RememberMe  bool   `json:"remember_me,omitempty"`
}

// CredentialStore persists Credentials between process runs.
type CredentialStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// MemoryStore keeps credentials for the lifetime of the process only.
type MemoryStore struct {
	lock  sync.RWMutex
	creds Credentials
}

var _ CredentialStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (Credentials, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.creds, nil
}

func (m *MemoryStore) Save(creds Credentials) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.creds = creds
	return nil
}

func (m *MemoryStore) Clear() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.creds = Credentials{}
	return nil
}

// FileStore persists credentials as a JSON file readable only by the owner.
type FileStore struct {
	lock sync.Mutex
	path string
}

var _ CredentialStore = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (Credentials, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, errors.Wrap(err, "[FileStore.Load] read")
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt state file counts as no credentials
		return Credentials{}, nil
	}
	return creds, nil
}

func (f *FileStore) Save(creds Credentials) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] marshal")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.Save] mkdir")
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Save] write")
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove")
	}
	return nil
}
