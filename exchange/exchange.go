// Package exchange moves ledgers between their block form and image artifacts:
// canonical serialization plus stego embedding on the way out, extraction,
// parsing and chain verification on the way in.
package exchange

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"

	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/logx"
	"github.com/mezonai/vessel/stego"
)

// ExportOptions controls cover preparation in ExportLedger
type ExportOptions struct {
	// TargetSize resizes a supplied cover, or sizes a generated one, to a
	// TargetSize x TargetSize square. Zero keeps the cover as-is.
	TargetSize int
	// MinSide is the smallest side of a generated cover
	MinSide int
	// Fill is the colour of a generated cover
	Fill color.NRGBA
}

// DefaultExportOptions generates covers of at least 32x32 in a dark fill
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		MinSide: stego.DefaultMinSide,
		Fill:    stego.DefaultFill,
	}
}

// ImportResult holds the parsed blocks and the outcome of verifying them. A
// broken hash chain is reported here rather than as an error.
type ImportResult struct {
	Blocks     []ledger.Block          `json:"-"`
	Validation ledger.ValidationResult `json:"validation"`
}

// Report is the machine-readable outcome of VerifyOnly
type Report struct {
	Valid        bool                 `json:"valid"`
	Blocks       int                  `json:"blocks"`
	FirstInvalid int64                `json:"first_invalid"`
	Reason       ledger.FailureReason `json:"reason,omitempty"`
	Expected     string               `json:"expected,omitempty"`
	Actual       string               `json:"actual,omitempty"`
	PayloadBytes int                  `json:"payload_bytes"`
	CRC          string               `json:"crc"`
	Digest       string               `json:"digest,omitempty"`
}

// ExportLedger serializes blocks canonically and embeds them into cover. With a
// nil cover one is generated; see ExportOptions. A cover that is still too small
// yields the codec's CapacityError.
func ExportLedger(blocks []ledger.Block, cover image.Image, opts ExportOptions) (image.Image, error) {
	payload, err := ledger.CanonicalLedger(blocks)
	if err != nil {
		return nil, err
	}

	cover = prepareCover(cover, uint64(len(payload)), opts)
	out, err := stego.Encode(cover, payload)
	if err != nil {
		return nil, err
	}
	logx.Info("EXCHANGE", fmt.Sprintf("Exported %d block(s), %d bytes into %dx%d image", len(blocks), len(payload), out.Bounds().Dx(), out.Bounds().Dy()))
	return out, nil
}

// ImportLedger extracts, parses and verifies the ledger embedded in img. CRC and
// capacity failures are returned as errors; a broken chain is returned in the
// result alongside the blocks.
func ImportLedger(img image.Image) (ImportResult, error) {
	payload, err := stego.Decode(img)
	if err != nil {
		return ImportResult{}, err
	}
	blocks, err := ledger.ParseLedger(payload)
	if err != nil {
		return ImportResult{}, err
	}

	validation := ledger.VerifyBlocks(blocks)
	if !validation.Valid {
		logx.Warn("EXCHANGE", fmt.Sprintf("Imported chain invalid at block %d: %s", validation.FirstInvalid, validation.Reason))
	}
	return ImportResult{Blocks: blocks, Validation: validation}, nil
}

// VerifyOnly decodes img and verifies the chain without handing out the
// blocks. With wantDigest the canonical ledger digest is included.
func VerifyOnly(img image.Image, wantDigest bool) (Report, error) {
	payload, err := stego.Decode(img)
	if err != nil {
		return Report{}, err
	}
	blocks, err := ledger.ParseLedger(payload)
	if err != nil {
		return Report{}, err
	}

	v := ledger.VerifyBlocks(blocks)
	report := Report{
		Valid:        v.Valid,
		Blocks:       len(blocks),
		FirstInvalid: v.FirstInvalid,
		Reason:       v.Reason,
		Expected:     v.Expected,
		Actual:       v.Actual,
		PayloadBytes: len(payload),
		CRC:          fmt.Sprintf("%08x", crc32.ChecksumIEEE(payload)),
	}
	if wantDigest {
		digest, err := ledger.DigestBlocks(blocks)
		if err != nil {
			return Report{}, err
		}
		report.Digest = digest
	}
	return report, nil
}

// PayloadDigest hashes raw bytes the way ledger digests are rendered
func PayloadDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
