package store

import (
	"fmt"

	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/logx"
)

// LedgerStore persists a whole chain. Each CLI invocation opens a store, loads,
// applies one operation, saves and closes it; nothing is cached between calls.
type LedgerStore interface {
	Load() ([]ledger.Block, error)
	Save(blocks []ledger.Block) error
	Close() error
}

// Locker is implemented by stores that guard the load-save window against
// other processes.
type Locker interface {
	Lock() error
	Unlock() error
}

// View loads the chain into a Ledger and passes it to fn without saving
func View(s LedgerStore, fn func(l *ledger.Ledger) error) error {
	unlock, err := lock(s)
	if err != nil {
		return err
	}
	defer unlock()

	blocks, err := s.Load()
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	return fn(ledger.FromBlocks(blocks))
}

// Update loads the chain, lets fn mutate it and saves the result. Nothing is
// written when fn fails.
func Update(s LedgerStore, fn func(l *ledger.Ledger) error) error {
	unlock, err := lock(s)
	if err != nil {
		return err
	}
	defer unlock()

	blocks, err := s.Load()
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	l := ledger.FromBlocks(blocks)
	if err := fn(l); err != nil {
		return err
	}
	if err := s.Save(l.Blocks()); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func lock(s LedgerStore) (func(), error) {
	locker, ok := s.(Locker)
	if !ok {
		return func() {}, nil
	}
	if err := locker.Lock(); err != nil {
		return nil, fmt.Errorf("lock ledger: %w", err)
	}
	return func() {
		if err := locker.Unlock(); err != nil {
			logx.Error("STORE", "Failed to release ledger lock: ", err)
		}
	}, nil
}
