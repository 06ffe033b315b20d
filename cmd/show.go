package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/store"
)

var (
	showFrom  uint64
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List the blocks of the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocks []ledger.Block
		err := withStore(func(s store.LedgerStore) error {
			return store.View(s, func(l *ledger.Ledger) error {
				blocks = l.Blocks()
				return nil
			})
		})
		if err != nil {
			return err
		}

		blocks = window(blocks, showFrom, showLimit)
		if globalOpts.jsonOutput {
			return printJSON(blocks)
		}
		return renderBlocks(blocks)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Uint64Var(&showFrom, "from", 0, "first block index to list")
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "maximum number of blocks to list (0 for all)")
}

func window(blocks []ledger.Block, from uint64, limit int) []ledger.Block {
	if from >= uint64(len(blocks)) {
		return []ledger.Block{}
	}
	blocks = blocks[from:]
	if limit > 0 && limit < len(blocks) {
		blocks = blocks[:limit]
	}
	return blocks
}
