package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/logx"
)

// State of a ledger instance. There is no transition back to Empty.
type State string

const (
	StateEmpty    State = "empty"
	StateNonEmpty State = "non_empty"
)

// ImportMode selects how Import treats the existing chain
type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportMerge   ImportMode = "merge"
)

// ParseImportMode accepts "replace" or "merge"
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(s)) {
	case ImportReplace:
		return ImportReplace, nil
	case ImportMerge:
		return ImportMerge, nil
	default:
		return "", fmt.Errorf("unknown import mode %q (want replace or merge)", s)
	}
}

// RehashResult carries the recomputed chain and the positions whose stored
// index, prevHash or hash differed from the recomputed values.
type RehashResult struct {
	Blocks  []Block  `json:"-"`
	Drifted []uint64 `json:"drifted"`
	DryRun  bool     `json:"dry_run"`
}

// ImportResult summarises an Import call
type ImportResult struct {
	Mode   ImportMode `json:"mode"`
	Added  int        `json:"added"`
	Length int        `json:"length"`
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock replaces time.Now as the source of block timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger owns an ordered, hash-linked block sequence. All mutations take the
// write lock because they read the tail before writing.
type Ledger struct {
	mu     sync.RWMutex
	blocks []Block
	now    func() time.Time
}

// New creates an empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		blocks: make([]Block, 0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromBlocks creates a ledger holding a copy of blocks as-is, without
// verification. Call Verify to check the loaded chain.
func FromBlocks(blocks []Block, opts ...Option) *Ledger {
	l := New(opts...)
	l.blocks = cloneBlocks(blocks)
	return l
}

// Append builds the next block for payload, hashes it and records it. Nothing
// is recorded when hashing fails.
func (l *Ledger) Append(payload Payload) (Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC().Truncate(time.Microsecond)
	block := Block{
		Index:     0,
		Timestamp: ts,
		Payload:   payload.Clone(),
		PrevHash:  GenesisPrevHash,
	}
	if n := len(l.blocks); n > 0 {
		latest := l.blocks[n-1]
		block.Index = latest.Index + 1
		block.PrevHash = latest.Hash
		if ts.Before(latest.Timestamp) {
			block.Timestamp = latest.Timestamp
		}
	}

	hash, err := HashBlock(block)
	if err != nil {
		return Block{}, fmt.Errorf("append block %d: %w", block.Index, err)
	}
	block.Hash = hash

	l.blocks = append(l.blocks, block)
	logx.Debug("LEDGER", fmt.Sprintf("Appended block %d hash=%s", block.Index, block.Hash))
	return block.Clone(), nil
}

// Verify walks the chain; see VerifyBlocks. It never fails: a broken chain is
// reported in the result.
func (l *Ledger) Verify() ValidationResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return VerifyBlocks(l.blocks)
}

// Rehash recomputes index, prevHash and hash of every block from the stored
// payloads and timestamps. With dryRun the stored chain is left untouched.
// Drifted positions are logged so repairs of tampered data leave a trace.
func (l *Ledger) Rehash(dryRun bool) (RehashResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rebuilt := make([]Block, len(l.blocks))
	drifted := make([]uint64, 0)
	prev := GenesisPrevHash
	for i, stored := range l.blocks {
		b := stored.Clone()
		b.Index = uint64(i)
		b.PrevHash = prev
		hash, err := HashBlock(b)
		if err != nil {
			return RehashResult{}, fmt.Errorf("rehash block %d: %w", i, err)
		}
		b.Hash = hash
		if stored.Index != b.Index || stored.PrevHash != b.PrevHash || stored.Hash != b.Hash {
			drifted = append(drifted, b.Index)
		}
		rebuilt[i] = b
		prev = hash
	}

	if len(drifted) > 0 {
		logx.Warn("LEDGER", fmt.Sprintf("Rehash found drift at %d block(s), first at %d (dry run: %v)", len(drifted), drifted[0], dryRun))
	}
	if !dryRun {
		l.blocks = rebuilt
	}
	return RehashResult{Blocks: cloneBlocks(rebuilt), Drifted: drifted, DryRun: dryRun}, nil
}

// Import adopts source (ImportReplace) or extends the chain with the part of
// source beyond the current tail (ImportMerge). A merge checks that every
// overlapping block carries the local hash and that every new block links to
// its predecessor and hashes correctly; the first failure is an
// ImportConflictError and leaves the ledger unchanged.
func (l *Ledger) Import(source []Block, mode ImportMode) (ImportResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch mode {
	case ImportReplace:
		l.blocks = cloneBlocks(source)
		logx.Info("LEDGER", fmt.Sprintf("Replaced chain with %d imported block(s)", len(source)))
		return ImportResult{Mode: mode, Added: len(source), Length: len(l.blocks)}, nil
	case ImportMerge:
	default:
		return ImportResult{}, fmt.Errorf("unknown import mode %q", mode)
	}

	local := len(l.blocks)
	merged := cloneBlocks(l.blocks)
	prevHash := GenesisPrevHash
	if local > 0 {
		prevHash = l.blocks[local-1].Hash
	}

	for _, b := range source {
		if b.Index < uint64(local) {
			if have := l.blocks[b.Index].Hash; b.Hash != have {
				return ImportResult{}, ledgererr.NewImportConflictError(b.Index, have, b.Hash)
			}
			continue
		}
		if next := uint64(len(merged)); b.Index != next {
			return ImportResult{}, ledgererr.NewImportConflictError(b.Index, fmt.Sprintf("index %d", next), fmt.Sprintf("index %d", b.Index))
		}
		if b.PrevHash != prevHash {
			return ImportResult{}, ledgererr.NewImportConflictError(b.Index, prevHash, b.PrevHash)
		}
		expected, err := HashBlock(b)
		if err != nil {
			return ImportResult{}, fmt.Errorf("import block %d: %w", b.Index, err)
		}
		if b.Hash != expected {
			return ImportResult{}, ledgererr.NewImportConflictError(b.Index, expected, b.Hash)
		}
		merged = append(merged, b.Clone())
		prevHash = b.Hash
	}

	added := len(merged) - local
	l.blocks = merged
	logx.Info("LEDGER", fmt.Sprintf("Merged %d block(s), chain length %d", added, len(merged)))
	return ImportResult{Mode: mode, Added: added, Length: len(merged)}, nil
}

// Blocks returns a copy of the chain
func (l *Ledger) Blocks() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneBlocks(l.blocks)
}

// Len returns the number of blocks
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Tail returns the most recent block
func (l *Ledger) Tail() (Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.blocks) == 0 {
		return Block{}, false
	}
	return l.blocks[len(l.blocks)-1].Clone(), true
}

// GetByIndex retrieves a block by its position in the chain
func (l *Ledger) GetByIndex(index uint64) (Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index >= uint64(len(l.blocks)) {
		return Block{}, fmt.Errorf("index %d out of range (length %d)", index, len(l.blocks))
	}
	return l.blocks[index].Clone(), nil
}

// State reports Empty until the first block is recorded
func (l *Ledger) State() State {
	if l.Len() == 0 {
		return StateEmpty
	}
	return StateNonEmpty
}

// Canonical returns the canonical byte form of the whole chain
func (l *Ledger) Canonical() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return CanonicalLedger(l.blocks)
}

// Digest is the hex SHA-256 over the canonical chain
func (l *Ledger) Digest() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return DigestBlocks(l.blocks)
}

func cloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
