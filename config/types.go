package config

// LedgerConfig describes where the ledger of record lives
type LedgerConfig struct {
	Backend   string `ini:"backend"`
	Path      string `ini:"path"`
	Cover     string `ini:"cover"`
	CoverSize int    `ini:"cover_size"`
	RedisAddr string `ini:"redis_addr"`
	RedisDB   int    `ini:"redis_db"`
}

// StegoConfig tunes cover generation and batch embedding
type StegoConfig struct {
	MinSide int    `ini:"min_side"`
	Fill    string `ini:"fill"`
	Workers int    `ini:"workers"`
}

// LogConfig selects the rotated log file
type LogConfig struct {
	File       string `ini:"file"`
	MaxSizeMB  int    `ini:"max_size_mb"`
	MaxAgeDays int    `ini:"max_age_days"`
}

// APIConfig configures the HTTP service
type APIConfig struct {
	ListenAddr     string `ini:"listen_addr"`
	MaxUploadBytes int64  `ini:"max_upload_bytes"`
	WriteLimit     int    `ini:"write_limit_per_minute"`
	Metrics        bool   `ini:"metrics"`
}

// Config is the whole runtime configuration
type Config struct {
	Ledger LedgerConfig
	Stego  StegoConfig
	Log    LogConfig
	API    APIConfig
}
