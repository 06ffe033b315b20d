package store

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mezonai/vessel/db"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/logx"
)

// GenericBlockStore is a database-agnostic LedgerStore over a DatabaseProvider.
// Each block is stored under PrefixBlock + big-endian index, with the chain
// length and tail hash kept under PrefixBlockMeta.
type GenericBlockStore struct {
	provider  db.DatabaseProvider
	txManager *db.DBTxManager
	mu        sync.Mutex
}

// NewGenericBlockStore creates a new generic block store with the given provider
func NewGenericBlockStore(provider db.DatabaseProvider) (*GenericBlockStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericBlockStore{
		provider:  provider,
		txManager: db.NewDBTxManager(provider),
	}, nil
}

func blockKey(index uint64) []byte {
	key := make([]byte, len(PrefixBlock)+blockIndexKeySize)
	copy(key, PrefixBlock)
	binary.BigEndian.PutUint64(key[len(PrefixBlock):], index)
	return key
}

func metaKey(name string) []byte {
	return []byte(PrefixBlockMeta + name)
}

// Length returns the stored chain length
func (s *GenericBlockStore) Length() (uint64, error) {
	value, err := s.provider.Get(metaKey(BlockMetaKeyLength))
	if err != nil {
		return 0, fmt.Errorf("failed to get ledger length: %w", err)
	}
	if value == nil {
		return 0, nil
	}
	if len(value) != 8 {
		return 0, fmt.Errorf("corrupt ledger length: %d bytes", len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

// TailHash returns the stored hash of the last block, empty for an empty chain
func (s *GenericBlockStore) TailHash() (string, error) {
	value, err := s.provider.Get(metaKey(BlockMetaKeyTailHash))
	if err != nil {
		return "", fmt.Errorf("failed to get tail hash: %w", err)
	}
	return string(value), nil
}

// Block returns the block stored at index
func (s *GenericBlockStore) Block(index uint64) (ledger.Block, error) {
	value, err := s.provider.Get(blockKey(index))
	if err != nil {
		return ledger.Block{}, fmt.Errorf("failed to get block %d: %w", index, err)
	}
	if value == nil {
		return ledger.Block{}, fmt.Errorf("block %d not found", index)
	}
	var b ledger.Block
	if err := b.UnmarshalJSON(value); err != nil {
		return ledger.Block{}, fmt.Errorf("failed to decode block %d: %w", index, err)
	}
	return b, nil
}

// Load reads every block up to the stored length
func (s *GenericBlockStore) Load() ([]ledger.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	length, err := s.Length()
	if err != nil {
		return nil, err
	}
	blocks := make([]ledger.Block, 0, length)
	for i := uint64(0); i < length; i++ {
		b, err := s.Block(i)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Save replaces the stored chain with blocks in a single batch. Keys beyond the
// new length are removed so a shorter replacement leaves no stale blocks.
func (s *GenericBlockStore) Save(blocks []ledger.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldLength, err := s.Length()
	if err != nil {
		return err
	}

	encoded := make([][]byte, len(blocks))
	for i := range blocks {
		data, err := ledger.CanonicalBlock(blocks[i], true)
		if err != nil {
			return err
		}
		encoded[i] = data
	}

	err = s.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		for i, data := range encoded {
			batch.Put(blockKey(uint64(i)), data)
		}
		for i := uint64(len(blocks)); i < oldLength; i++ {
			batch.Delete(blockKey(i))
		}

		lengthBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(lengthBytes, uint64(len(blocks)))
		batch.Put(metaKey(BlockMetaKeyLength), lengthBytes)

		if len(blocks) > 0 {
			batch.Put(metaKey(BlockMetaKeyTailHash), []byte(blocks[len(blocks)-1].Hash))
		} else {
			batch.Delete(metaKey(BlockMetaKeyTailHash))
		}
		return nil
	})
	if err != nil {
		return err
	}

	logx.Debug("BLOCKSTORE", fmt.Sprintf("Saved %d blocks (previous length %d)", len(blocks), oldLength))
	return nil
}

// Close closes the underlying provider
func (s *GenericBlockStore) Close() error {
	return s.provider.Close()
}
