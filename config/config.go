package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

const DefaultConfigPath = "config/config.ini"

func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		Backend: "json",
		Path:    "ledger.json",
	}
}

func DefaultStegoConfig() *StegoConfig {
	return &StegoConfig{
		MinSide: 32,
		Fill:    "12,12,12",
		Workers: 4,
	}
}

func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		File:       "./logs/vessel.log",
		MaxSizeMB:  100,
		MaxAgeDays: 28,
	}
}

func DefaultAPIConfig() *APIConfig {
	return &APIConfig{
		ListenAddr:     ":8080",
		MaxUploadBytes: 32 << 20,
		WriteLimit:     120,
		Metrics:        true,
	}
}

// loadSection maps one ini section onto dst, which already holds defaults.
// A missing file leaves the defaults untouched.
func loadSection(path, section string, dst interface{}) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := cfg.Section(section).MapTo(dst); err != nil {
		return fmt.Errorf("failed to map [%s]: %w", section, err)
	}
	return nil
}

// LoadLedgerConfig reads the [ledger] section
func LoadLedgerConfig(path string) (*LedgerConfig, error) {
	ledgerCfg := DefaultLedgerConfig()
	if err := loadSection(path, "ledger", ledgerCfg); err != nil {
		return nil, err
	}
	return ledgerCfg, nil
}

// LoadStegoConfig reads the [stego] section
func LoadStegoConfig(path string) (*StegoConfig, error) {
	stegoCfg := DefaultStegoConfig()
	if err := loadSection(path, "stego", stegoCfg); err != nil {
		return nil, err
	}
	if stegoCfg.MinSide <= 0 {
		return nil, fmt.Errorf("stego min_side must be positive, got %d", stegoCfg.MinSide)
	}
	if stegoCfg.Workers <= 0 {
		stegoCfg.Workers = 1
	}
	if _, err := stegoCfg.FillColor(); err != nil {
		return nil, err
	}
	return stegoCfg, nil
}

// LoadLogConfig reads the [log] section
func LoadLogConfig(path string) (*LogConfig, error) {
	logCfg := DefaultLogConfig()
	if err := loadSection(path, "log", logCfg); err != nil {
		return nil, err
	}
	return logCfg, nil
}

// LoadAPIConfig reads the [api] section
func LoadAPIConfig(path string) (*APIConfig, error) {
	apiCfg := DefaultAPIConfig()
	if err := loadSection(path, "api", apiCfg); err != nil {
		return nil, err
	}
	return apiCfg, nil
}

// Load reads every section of the config file
func Load(path string) (*Config, error) {
	ledgerCfg, err := LoadLedgerConfig(path)
	if err != nil {
		return nil, err
	}
	stegoCfg, err := LoadStegoConfig(path)
	if err != nil {
		return nil, err
	}
	logCfg, err := LoadLogConfig(path)
	if err != nil {
		return nil, err
	}
	apiCfg, err := LoadAPIConfig(path)
	if err != nil {
		return nil, err
	}
	return &Config{Ledger: *ledgerCfg, Stego: *stegoCfg, Log: *logCfg, API: *apiCfg}, nil
}

// FillColor parses Fill as "r,g,b"
func (c *StegoConfig) FillColor() (color.NRGBA, error) {
	parts := strings.Split(c.Fill, ",")
	if len(parts) != 3 {
		return color.NRGBA{}, fmt.Errorf("fill must be r,g,b, got %q", c.Fill)
	}
	var rgb [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid fill component %q: %w", p, err)
		}
		rgb[i] = uint8(v)
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}
