package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/jsonx"
)

// GenesisPrevHash is the prevHash of block 0: an all-zero SHA-256 digest in hex
var GenesisPrevHash = strings.Repeat("0", 64)

// TimestampLayout is the only textual form a block timestamp is hashed in
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Block is one entry in the ledger
type Block struct {
	Index     uint64
	Timestamp time.Time
	Payload   Payload
	PrevHash  string
	Hash      string
}

// FormatTimestamp renders t in UTC with microsecond precision
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp reads TimestampLayout, falling back to RFC 3339 for ledgers
// written by other tools.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Clone returns a copy that shares no mutable state with b
func (b Block) Clone() Block {
	b.Payload = b.Payload.Clone()
	return b
}

// blockJSON fixes the key order of the serialized block
type blockJSON struct {
	Index     uint64          `json:"index"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	PrevHash  string          `json:"prevHash"`
	Hash      string          `json:"hash,omitempty"`
}

// MarshalJSON encodes the block in canonical form, hash included
func (b Block) MarshalJSON() ([]byte, error) {
	return CanonicalBlock(b, true)
}

// UnmarshalJSON decodes a block written by MarshalJSON or a compatible tool
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := jsonx.UnmarshalNumber(data, &raw); err != nil {
		return ledgererr.NewSerializationError(fmt.Sprintf("block: %v", err))
	}
	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return ledgererr.NewSerializationError(fmt.Sprintf("block %d: %v", raw.Index, err))
	}
	var payload Payload
	if len(raw.Payload) == 0 {
		return ledgererr.NewSerializationError(fmt.Sprintf("block %d: missing payload", raw.Index))
	}
	if err := payload.UnmarshalJSON(raw.Payload); err != nil {
		return err
	}
	*b = Block{
		Index:     raw.Index,
		Timestamp: ts,
		Payload:   payload,
		PrevHash:  raw.PrevHash,
		Hash:      raw.Hash,
	}
	return nil
}
