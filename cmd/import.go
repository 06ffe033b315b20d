package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/logx"
	"github.com/mezonai/vessel/store"
)

var importMode string

var importCmd = &cobra.Command{
	Use:   "import SOURCE",
	Short: "Import blocks from a ledger file or a PNG artifact",
	Long: `Import adopts another chain. In replace mode the source becomes the ledger;
in merge mode the overlapping prefix must match hash for hash and only the
blocks past the local tail are added.
Examples:
  vessel import exported.json --mode replace
  vessel import chapter4.png
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := ledger.ParseImportMode(importMode)
		if err != nil {
			return err
		}
		source, err := readSource(args[0])
		if err != nil {
			return err
		}

		var result ledger.ImportResult
		err = withStore(func(s store.LedgerStore) error {
			return store.Update(s, func(l *ledger.Ledger) error {
				res, err := l.Import(source, mode)
				result = res
				return err
			})
		})
		if err != nil {
			return err
		}

		logx.Info("IMPORT", fmt.Sprintf("Imported %s from %s: %d added, length %d", result.Mode, args[0], result.Added, result.Length))
		if globalOpts.jsonOutput {
			return printJSON(result)
		}
		pterm.Success.Printfln("Imported %d block(s) (%s), ledger length %d", result.Added, result.Mode, result.Length)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importMode, "mode", "m", string(ledger.ImportMerge), "replace or merge")
}

// readSource loads blocks from a PNG artifact or a JSON ledger file. A PNG
// whose chain does not verify is refused.
func readSource(path string) ([]ledger.Block, error) {
	if !isPNG(path) {
		return exchange.ReadLedgerFile(path)
	}
	res, err := exchange.ImportFile(path)
	if err != nil {
		return nil, err
	}
	if err := res.Validation.Err(); err != nil {
		return nil, err
	}
	return res.Blocks, nil
}
