package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/jsonx"
)

// CanonicalBlock returns the deterministic encoding of b. With withHash false
// the hash field is left out; that form is the input of HashBlock.
func CanonicalBlock(b Block, withHash bool) ([]byte, error) {
	payload, err := b.Payload.canonical()
	if err != nil {
		return nil, err
	}
	raw := blockJSON{
		Index:     b.Index,
		Timestamp: FormatTimestamp(b.Timestamp),
		Payload:   payload,
		PrevHash:  b.PrevHash,
	}
	if withHash {
		raw.Hash = b.Hash
	}
	return jsonx.MarshalCanonical(raw)
}

// HashBlock computes the hex SHA-256 of the block's canonical bytes without hash
func HashBlock(b Block) (string, error) {
	data, err := CanonicalBlock(b, false)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalLedger encodes blocks as a compact JSON array, hashes included.
// These are the bytes embedded into images and digested.
func CanonicalLedger(blocks []Block) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, b := range blocks {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := CanonicalBlock(b, true)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b.Index, err)
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ParseLedger decodes a JSON array of blocks, as produced by CanonicalLedger or
// by the indented ledger file format.
func ParseLedger(data []byte) ([]Block, error) {
	var raws []json.RawMessage
	if err := jsonx.Unmarshal(data, &raws); err != nil {
		return nil, ledgererr.NewSerializationError(fmt.Sprintf("ledger: %v", err))
	}
	blocks := make([]Block, len(raws))
	for i, raw := range raws {
		if err := blocks[i].UnmarshalJSON(raw); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

// DigestBlocks is the hex SHA-256 of CanonicalLedger(blocks)
func DigestBlocks(blocks []Block) (string, error) {
	data, err := CanonicalLedger(blocks)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// EncodeLedgerFile renders blocks in the indented on-disk JSON format
func EncodeLedgerFile(blocks []Block) ([]byte, error) {
	if blocks == nil {
		blocks = []Block{}
	}
	data, err := CanonicalLedger(blocks)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return nil, ledgererr.NewSerializationError(err.Error())
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
