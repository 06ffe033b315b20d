package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/common"
	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/store"
)

var (
	digestBase58 bool
	digestImage  string
	digestExpect string
)

// DigestOutput is the --json form of the digest command
type DigestOutput struct {
	Digest string `json:"digest"`
	Base58 string `json:"base58,omitempty"`
	Length int    `json:"length"`
	Match  *bool  `json:"match,omitempty"`
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the SHA-256 digest of the canonical ledger",
	Long: `Digest hashes the canonical serialization of the whole ledger, or of the
ledger embedded in --image. With --expect it compares against a hex or base58
digest and exits non-zero on mismatch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := computeDigest()
		if err != nil {
			return err
		}

		if digestBase58 {
			out.Base58, err = common.DigestToBase58(out.Digest)
			if err != nil {
				return err
			}
		}

		var mismatch error
		if digestExpect != "" {
			want, err := common.NormalizeDigest(digestExpect)
			if err != nil {
				return err
			}
			match := want == out.Digest
			out.Match = &match
			if !match {
				mismatch = fmt.Errorf("digest mismatch: expected %s, got %s", want, out.Digest)
			}
		}

		if globalOpts.jsonOutput {
			if err := printJSON(out); err != nil {
				return err
			}
			return mismatch
		}
		pterm.Println(out.Digest)
		if out.Base58 != "" {
			pterm.Println(out.Base58)
		}
		if out.Match != nil && *out.Match {
			pterm.Success.Println("Digest matches")
		}
		return mismatch
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().BoolVar(&digestBase58, "base58", false, "also print the digest in base58")
	digestCmd.Flags().StringVarP(&digestImage, "image", "i", "", "digest the ledger embedded in this PNG")
	digestCmd.Flags().StringVar(&digestExpect, "expect", "", "expected digest (hex or base58)")
}

func computeDigest() (DigestOutput, error) {
	if digestImage != "" {
		report, err := exchange.VerifyFile(digestImage, true)
		if err != nil {
			return DigestOutput{}, err
		}
		return DigestOutput{Digest: report.Digest, Length: report.Blocks}, nil
	}

	var out DigestOutput
	err := withStore(func(s store.LedgerStore) error {
		return store.View(s, func(l *ledger.Ledger) error {
			digest, err := l.Digest()
			out.Digest = digest
			out.Length = l.Len()
			return err
		})
	})
	return out, err
}
