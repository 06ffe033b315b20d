package db

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// The ledger of record must survive a crash right after Save returns, so every
// write is fsynced.
var levelDBSyncWrite = &opt.WriteOptions{Sync: true}

// LevelDBProvider keeps ledger keys in a LevelDB directory
type LevelDBProvider struct {
	closeOnce sync.Once
	ldb       *leveldb.DB
}

// NewLevelDBProvider opens (or creates) a LevelDB database in directory
func NewLevelDBProvider(directory string) (DatabaseProvider, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}
	ldb, err := leveldb.OpenFile(filepath.Clean(directory), &opt.Options{
		BlockCacheCapacity: 8 * opt.MiB,
		WriteBuffer:        4 * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB at %s: %w", directory, err)
	}
	return &LevelDBProvider{ldb: ldb}, nil
}

func (p *LevelDBProvider) Get(key []byte) ([]byte, error) {
	value, err := p.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return value, err
}

func (p *LevelDBProvider) Put(key, value []byte) error {
	return p.ldb.Put(key, value, levelDBSyncWrite)
}

func (p *LevelDBProvider) Delete(key []byte) error {
	return p.ldb.Delete(key, levelDBSyncWrite)
}

func (p *LevelDBProvider) Has(key []byte) (bool, error) {
	return p.ldb.Has(key, nil)
}

func (p *LevelDBProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.ldb.Close()
	})
	return err
}

func (p *LevelDBProvider) Batch() DatabaseBatch {
	return &levelDBBatch{ldb: p.ldb}
}

// levelDBBatch wraps leveldb.Batch, which is already atomic on Write
type levelDBBatch struct {
	ldb   *leveldb.DB
	batch leveldb.Batch
}

func (b *levelDBBatch) Put(key, value []byte) { b.batch.Put(key, value) }

func (b *levelDBBatch) Delete(key []byte) { b.batch.Delete(key) }

func (b *levelDBBatch) Len() int { return b.batch.Len() }

func (b *levelDBBatch) Write() error {
	return b.ldb.Write(&b.batch, levelDBSyncWrite)
}

func (b *levelDBBatch) Reset() { b.batch.Reset() }

func (b *levelDBBatch) Close() error {
	b.batch.Reset()
	return nil
}
