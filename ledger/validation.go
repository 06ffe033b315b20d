package ledger

import (
	"strconv"

	ledgererr "github.com/mezonai/vessel/errors"
)

// FailureReason names the check that rejected a block
type FailureReason string

const (
	ReasonIndex         FailureReason = "index"
	ReasonGenesis       FailureReason = "genesis"
	ReasonPrevHash      FailureReason = "prev_hash"
	ReasonHash          FailureReason = "hash"
	ReasonSerialization FailureReason = "serialization"
)

// ValidationResult is the machine-readable outcome of a chain walk.
// FirstInvalid is -1 for a valid chain.
type ValidationResult struct {
	Valid        bool          `json:"valid"`
	Length       int           `json:"length"`
	FirstInvalid int64         `json:"first_invalid"`
	Reason       FailureReason `json:"reason,omitempty"`
	Expected     string        `json:"expected,omitempty"`
	Actual       string        `json:"actual,omitempty"`
}

// Err converts an invalid result into a chain_invalid LedgerError
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return ledgererr.NewChainInvalidError(uint64(r.FirstInvalid), string(r.Reason), r.Expected, r.Actual)
}

func invalidAt(length, index int, reason FailureReason, expected, actual string) ValidationResult {
	return ValidationResult{
		Valid:        false,
		Length:       length,
		FirstInvalid: int64(index),
		Reason:       reason,
		Expected:     expected,
		Actual:       actual,
	}
}

// VerifyBlocks walks blocks from genesis to tail. It checks index continuity,
// the genesis sentinel, prevHash linkage and each stored hash, and stops at the
// first failure. An empty sequence is valid.
func VerifyBlocks(blocks []Block) ValidationResult {
	n := len(blocks)
	for i, b := range blocks {
		if b.Index != uint64(i) {
			return invalidAt(n, i, ReasonIndex, strconv.Itoa(i), strconv.FormatUint(b.Index, 10))
		}

		if i == 0 {
			if b.PrevHash != GenesisPrevHash {
				return invalidAt(n, i, ReasonGenesis, GenesisPrevHash, b.PrevHash)
			}
		} else if b.PrevHash != blocks[i-1].Hash {
			return invalidAt(n, i, ReasonPrevHash, blocks[i-1].Hash, b.PrevHash)
		}

		expected, err := HashBlock(b)
		if err != nil {
			return invalidAt(n, i, ReasonSerialization, "", err.Error())
		}
		if b.Hash != expected {
			return invalidAt(n, i, ReasonHash, expected, b.Hash)
		}
	}

	return ValidationResult{Valid: true, Length: n, FirstInvalid: -1}
}
