package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/logx"
	"github.com/mezonai/vessel/store"
	"github.com/mezonai/vessel/stringutil"
)

type AppendConfig struct {
	Text       string
	RecordPath string
}

var appendConfig AppendConfig

var appendCmd = &cobra.Command{
	Use:   "append",
	Short: "Append a block to the ledger",
	Long: `Append a text or record payload as a new block linked to the current tail.
Examples:
  # Append a text entry
  vessel append --text "chapter one sealed"

  # Append a record read from YAML
  vessel append --record memory.yml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := appendPayload()
		if err != nil {
			return err
		}

		var block ledger.Block
		err = withStore(func(s store.LedgerStore) error {
			return store.Update(s, func(l *ledger.Ledger) error {
				b, err := l.Append(payload)
				block = b
				return err
			})
		})
		if err != nil {
			return err
		}

		logx.Info("APPEND", fmt.Sprintf("Appended block %d (%s)", block.Index, stringutil.ShortenLog(block.Hash)))
		if globalOpts.jsonOutput {
			return printJSON(block)
		}
		pterm.Success.Printfln("Appended block %d", block.Index)
		pterm.Printfln("  hash %s", block.Hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appendCmd)
	appendCmd.Flags().StringVarP(&appendConfig.Text, "text", "t", "", "text payload")
	appendCmd.Flags().StringVarP(&appendConfig.RecordPath, "record", "r", "", "record payload file (.json, .yml, .yaml)")
	appendCmd.MarkFlagsMutuallyExclusive("text", "record")
	appendCmd.MarkFlagsOneRequired("text", "record")
}

func appendPayload() (ledger.Payload, error) {
	if appendConfig.RecordPath != "" {
		return readRecord(appendConfig.RecordPath)
	}
	return ledger.Text(appendConfig.Text), nil
}
