package db

// DatabaseProvider is the key/value surface the block store is written
// against. A missing key reads as (nil, nil) on every backend.
type DatabaseProvider interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)

	// Batch starts a group of writes that Write applies all-or-nothing
	Batch() DatabaseBatch

	// Close may be called more than once
	Close() error
}

// DatabaseBatch buffers writes until Write. Reset drops everything queued so
// far and Len reports how many operations are pending.
type DatabaseBatch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Len() int
	Write() error
	Reset()
	Close() error
}
