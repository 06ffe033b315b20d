package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/config"
	"github.com/mezonai/vessel/logx"
)

var rootCmd = &cobra.Command{
	Use:   "vessel",
	Short: "Hash-chained ledger carried inside images",
	Long: `vessel keeps an append-only, hash-chained ledger and persists it by embedding
its canonical serialization in the least significant bits of a PNG.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRuntimeConfig()
		if err != nil {
			return err
		}
		logx.Configure(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxAgeDays)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globalOpts.configPath, "config", "c", config.DefaultConfigPath, "path to the ini config file")
	flags.StringVarP(&globalOpts.backend, "backend", "b", "", "ledger backend: json, leveldb, bolt, redis or image")
	flags.StringVarP(&globalOpts.ledgerPath, "ledger", "l", "", "ledger file, image or database path")
	flags.BoolVar(&globalOpts.jsonOutput, "json", false, "print machine-readable JSON")
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed: ", err)
		pterm.Error.WithWriter(os.Stderr).Println(err.Error())
		return err
	}
	return nil
}
