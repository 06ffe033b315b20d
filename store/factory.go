package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mezonai/vessel/db"
	"github.com/mezonai/vessel/exchange"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// JSONStoreType keeps the ledger in an indented JSON file
	JSONStoreType StoreType = "json"

	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// BoltStoreType uses a single bbolt file
	BoltStoreType StoreType = "bolt"

	// RedisStoreType uses the Redis implementation
	RedisStoreType StoreType = "redis"

	// ImageStoreType keeps the ledger embedded in a PNG
	ImageStoreType StoreType = "image"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Path is the ledger file, image or database directory; for redis it is
	// an optional key namespace
	Path string `json:"path" yaml:"path"`

	// Cover is an optional PNG the image store embeds into
	Cover string `json:"cover,omitempty" yaml:"cover,omitempty"`

	// CoverSize resizes or sizes covers for the image store
	CoverSize int `json:"cover_size,omitempty" yaml:"cover_size,omitempty"`

	// Address and DB select the Redis server and database
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	DB      int    `json:"db,omitempty" yaml:"db,omitempty"`

	// Export overrides the encoding options of the image store. CoverSize
	// still wins over Export.TargetSize when set.
	Export *exchange.ExportOptions `json:"-" yaml:"-"`
}

// DefaultStoreConfig keeps the ledger in ./ledger.json
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Type: JSONStoreType,
		Path: "ledger.json",
	}
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}

	switch sc.Type {
	case JSONStoreType, LevelDBStoreType, BoltStoreType, ImageStoreType:
		if sc.Path == "" {
			return fmt.Errorf("path cannot be empty for %s store", sc.Type)
		}
	case RedisStoreType:
		if sc.Address == "" {
			return fmt.Errorf("address cannot be empty for redis store")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}

	if sc.CoverSize < 0 {
		return fmt.Errorf("cover size cannot be negative")
	}
	return nil
}

// LoadStoreConfig reads a StoreConfig from a YAML file
func LoadStoreConfig(path string) (*StoreConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read store config: %w", err)
	}

	cfg := DefaultStoreConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse store config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	return cfg, nil
}

// CreateProvider creates a database provider based on the configuration
func CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Path)

	case BoltStoreType:
		return db.NewBoltProvider(config.Path)

	case RedisStoreType:
		return db.NewRedisProvider(config.Address, config.DB, config.Path)

	default:
		return nil, fmt.Errorf("store type %s has no database provider", config.Type)
	}
}

// Open creates the LedgerStore described by config
func Open(config *StoreConfig) (LedgerStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case JSONStoreType:
		return NewJSONFileStore(config.Path), nil

	case ImageStoreType:
		opts := exchange.DefaultExportOptions()
		if config.Export != nil {
			opts = *config.Export
		}
		if config.CoverSize > 0 {
			opts.TargetSize = config.CoverSize
		}
		return NewImageStore(config.Path, config.Cover, opts), nil

	default:
		provider, err := CreateProvider(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider: %w", err)
		}
		blockStore, err := NewGenericBlockStore(provider)
		if err != nil {
			provider.Close()
			return nil, fmt.Errorf("failed to create block store: %w", err)
		}
		return blockStore, nil
	}
}
