package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/store"
)

var (
	rehashDryRun      bool
	rehashFailOnDrift bool
)

var rehashCmd = &cobra.Command{
	Use:   "rehash",
	Short: "Recompute indices, links and hashes for the whole chain",
	Long: `Rehash walks the chain from genesis, renumbering indices and recomputing
prevHash and hash for every block. Blocks whose stored values change are
reported as drift. With --dry-run nothing is saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var result ledger.RehashResult
		err := withStore(func(s store.LedgerStore) error {
			run := store.Update
			if rehashDryRun {
				run = store.View
			}
			return run(s, func(l *ledger.Ledger) error {
				res, err := l.Rehash(rehashDryRun)
				result = res
				return err
			})
		})
		if err != nil {
			return err
		}

		if globalOpts.jsonOutput {
			if err := printJSON(result); err != nil {
				return err
			}
		} else {
			renderDrift(result)
		}
		if rehashFailOnDrift && len(result.Drifted) > 0 {
			return fmt.Errorf("%d block(s) drifted from their stored hashes", len(result.Drifted))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rehashCmd)
	rehashCmd.Flags().BoolVar(&rehashDryRun, "dry-run", false, "report drift without saving")
	rehashCmd.Flags().BoolVar(&rehashFailOnDrift, "fail-on-drift", false, "exit non-zero when any block drifted")
}
