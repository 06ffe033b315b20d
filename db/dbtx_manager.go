package db

import (
	"fmt"

	"github.com/mezonai/vessel/logx"
)

// DBTxManager groups writes on a provider into one all-or-nothing batch
type DBTxManager struct {
	provider DatabaseProvider
}

func NewDBTxManager(provider DatabaseProvider) *DBTxManager {
	return &DBTxManager{provider: provider}
}

// WithBatch hands fn a fresh batch and writes it when fn returns nil. On error
// the queued operations are dropped and nothing reaches the database.
func (tm *DBTxManager) WithBatch(fn func(batch DatabaseBatch) error) error {
	batch := tm.provider.Batch()
	defer func() {
		if err := batch.Close(); err != nil {
			logx.Error("DB_TX", "Failed to close batch: ", err)
		}
	}()

	if err := fn(batch); err != nil {
		logx.Warn("DB_TX", "Discarding ", batch.Len(), " queued operations: ", err)
		batch.Reset()
		return fmt.Errorf("batch aborted: %w", err)
	}

	pending := batch.Len()
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to write batch of %d operations: %w", pending, err)
	}
	logx.Debug("DB_TX", "Wrote batch of ", pending, " operations")
	return nil
}
