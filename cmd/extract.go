package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/ledger"
)

var extractOut string

var extractCmd = &cobra.Command{
	Use:   "extract IMAGE",
	Short: "Recover the ledger embedded in a PNG",
	Long: `Extract decodes and verifies the ledger inside IMAGE and writes it as an
indented JSON ledger file. A broken chain is still written, and the command
exits non-zero after reporting it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := exchange.ImportFile(args[0])
		if err != nil {
			return err
		}

		data, err := ledger.EncodeLedgerFile(res.Blocks)
		if err != nil {
			return err
		}
		switch extractOut {
		case "", "-":
			if _, err := os.Stdout.Write(data); err != nil {
				return err
			}
		default:
			if err := os.WriteFile(extractOut, data, 0644); err != nil {
				return err
			}
			if globalOpts.jsonOutput {
				if err := printJSON(res); err != nil {
					return err
				}
			} else {
				pterm.Info.Printfln("Wrote %d block(s) to %s", len(res.Blocks), extractOut)
				renderValidation(res.Validation)
			}
		}
		return res.Validation.Err()
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "ledger file to write (stdout when empty)")
}
