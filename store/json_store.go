package store

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/mezonai/vessel/ledger"
)

// JSONFileStore keeps the chain in an indented JSON file. Writes go through a
// temporary file renamed into place, and Lock takes an advisory lock on a
// sibling ".lock" file.
type JSONFileStore struct {
	path string
	lock *flock.Flock
}

// NewJSONFileStore creates a store for the ledger file at path
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{
		path: path,
		lock: flock.New(path + defaultLockFileSuffix),
	}
}

// Path returns the ledger file location
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load reads the ledger file; a missing file is an empty ledger
func (s *JSONFileStore) Load() ([]ledger.Block, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []ledger.Block{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	return ledger.ParseLedger(data)
}

// Save writes blocks atomically
func (s *JSONFileStore) Save(blocks []ledger.Block) error {
	data, err := ledger.EncodeLedgerFile(blocks)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

// Lock blocks until the advisory lock is held
func (s *JSONFileStore) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, "create ledger directory")
	}
	return s.lock.Lock()
}

// Unlock releases the advisory lock
func (s *JSONFileStore) Unlock() error {
	return s.lock.Unlock()
}

// Close releases the lock if still held
func (s *JSONFileStore) Close() error {
	if s.lock.Locked() {
		return s.lock.Unlock()
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	return errors.Wrapf(os.Rename(tmpName, path), "rename into %s", path)
}
