package store

// Declare database key prefix for objects
const (
	PrefixBlockMeta       = "blk_meta:"
	PrefixBlock           = "blk:"
	BlockMetaKeyLength    = "length"
	BlockMetaKeyTailHash  = "tail_hash"
	blockIndexKeySize     = 8
	defaultLockFileSuffix = ".lock"
)
