package cmd

import (
	"github.com/spf13/cobra"

	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/store"
)

var (
	verifyImage  string
	verifyDigest bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the hash chain of the ledger or of an image",
	Long: `Verify checks index contiguity, the genesis sentinel, prevHash links and
every stored hash. It exits non-zero when the chain is invalid.
Examples:
  vessel verify
  vessel verify --image chapter3.png --digest --json
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifyImage != "" {
			return verifyImageFile(verifyImage, verifyDigest)
		}

		var result ledger.ValidationResult
		err := withStore(func(s store.LedgerStore) error {
			return store.View(s, func(l *ledger.Ledger) error {
				result = l.Verify()
				return nil
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
			renderValidation(result)
		}
		return result.Err()
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyImage, "image", "i", "", "verify the ledger embedded in this PNG instead")
	verifyCmd.Flags().BoolVar(&verifyDigest, "digest", false, "include the ledger digest in the image report")
}

func verifyImageFile(path string, wantDigest bool) error {
	report, err := exchange.VerifyFile(path, wantDigest)
	if err != nil {
		return err
	}
	if globalOpts.jsonOutput {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		renderReport(report)
	}
	if !report.Valid {
		return ledgererr.NewChainInvalidError(uint64(report.FirstInvalid), string(report.Reason), report.Expected, report.Actual)
	}
	return nil
}
