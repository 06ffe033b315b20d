package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/api"
	"github.com/mezonai/vessel/logx"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRuntimeConfig()
		if err != nil {
			return err
		}
		apiCfg := cfg.API
		if listenAddr != "" {
			apiCfg.ListenAddr = listenAddr
		}
		opts, err := exportOptions(cfg)
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := api.NewAPIServer(s, opts, apiCfg)
		sc, err := storeConfig(cfg)
		if err != nil {
			return err
		}
		logx.Info("SERVE", "Serving ", sc.Type, " ledger at ", sc.Path, " on ", apiCfg.ListenAddr)
		return server.Start(ctx, apiCfg.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (defaults to [api] listen_addr)")
}
