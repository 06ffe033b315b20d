package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/store"
)

type ExportConfig struct {
	CoverPath string
	Size      int
	OutPath   string
}

var exportConfig ExportConfig

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Embed the ledger into a PNG",
	Long: `Export serializes the ledger canonically and embeds it in the cover image.
Without --cover a dark square cover just large enough is generated.
Examples:
  vessel export --out chapter3.png
  vessel export --cover art.png --size 512 --out chapter3.png
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRuntimeConfig()
		if err != nil {
			return err
		}
		opts, err := exportOptions(cfg)
		if err != nil {
			return err
		}
		opts.TargetSize = exportConfig.Size

		var blocks []ledger.Block
		err = withStore(func(s store.LedgerStore) error {
			return store.View(s, func(l *ledger.Ledger) error {
				blocks = l.Blocks()
				return nil
			})
		})
		if err != nil {
			return err
		}

		img, err := exchange.ExportFile(blocks, exportConfig.CoverPath, exportConfig.OutPath, opts)
		if err != nil {
			return err
		}

		if globalOpts.jsonOutput {
			return printJSON(map[string]interface{}{
				"out":    exportConfig.OutPath,
				"blocks": len(blocks),
				"width":  img.Bounds().Dx(),
				"height": img.Bounds().Dy(),
			})
		}
		pterm.Success.Printfln("Embedded %d block(s) into %s (%dx%d)", len(blocks), exportConfig.OutPath, img.Bounds().Dx(), img.Bounds().Dy())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportConfig.CoverPath, "cover", "", "cover PNG (generated when empty)")
	exportCmd.Flags().IntVar(&exportConfig.Size, "size", 0, "resize the cover to SIZE x SIZE")
	exportCmd.Flags().StringVarP(&exportConfig.OutPath, "out", "o", "", "output PNG")
	exportCmd.MarkFlagRequired("out")
}
