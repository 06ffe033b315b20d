package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mezonai/vessel/config"
	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/jsonx"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/store"
)

type cliOptions struct {
	configPath string
	backend    string
	ledgerPath string
	jsonOutput bool
}

var (
	globalOpts cliOptions
	runtimeCfg *config.Config
)

func loadRuntimeConfig() (*config.Config, error) {
	if runtimeCfg != nil {
		return runtimeCfg, nil
	}
	cfg, err := config.Load(globalOpts.configPath)
	if err != nil {
		return nil, err
	}
	runtimeCfg = cfg
	return cfg, nil
}

// storeConfig merges the [ledger] section with the --backend and --ledger flags
func storeConfig(cfg *config.Config) (*store.StoreConfig, error) {
	opts, err := exportOptions(cfg)
	if err != nil {
		return nil, err
	}
	sc := &store.StoreConfig{
		Type:      store.StoreType(cfg.Ledger.Backend),
		Path:      cfg.Ledger.Path,
		Cover:     cfg.Ledger.Cover,
		CoverSize: cfg.Ledger.CoverSize,
		Address:   cfg.Ledger.RedisAddr,
		DB:        cfg.Ledger.RedisDB,
		Export:    &opts,
	}
	if globalOpts.backend != "" {
		sc.Type = store.StoreType(globalOpts.backend)
	}
	if globalOpts.ledgerPath != "" {
		sc.Path = globalOpts.ledgerPath
	}
	return sc, nil
}

func openStore() (store.LedgerStore, error) {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return nil, err
	}
	sc, err := storeConfig(cfg)
	if err != nil {
		return nil, err
	}
	return store.Open(sc)
}

// withStore opens the ledger of record for one operation and closes it after
func withStore(fn func(s store.LedgerStore) error) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func exportOptions(cfg *config.Config) (exchange.ExportOptions, error) {
	opts := exchange.DefaultExportOptions()
	opts.MinSide = cfg.Stego.MinSide
	fill, err := cfg.Stego.FillColor()
	if err != nil {
		return opts, err
	}
	opts.Fill = fill
	return opts, nil
}

// readRecord loads a record payload from a .json, .yml or .yaml file
func readRecord(path string) (ledger.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ledger.Payload{}, fmt.Errorf("read record: %w", err)
	}

	fields := map[string]interface{}{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &fields)
	default:
		err = jsonx.UnmarshalNumber(data, &fields)
	}
	if err != nil {
		return ledger.Payload{}, fmt.Errorf("parse record %s: %w", path, err)
	}
	return ledger.Record(fields), nil
}

func printJSON(v interface{}) error {
	data, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func isPNG(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".png")
}
