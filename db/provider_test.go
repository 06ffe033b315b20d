package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProviders(t *testing.T) map[string]DatabaseProvider {
	t.Helper()
	dir := t.TempDir()

	level, err := NewLevelDBProvider(filepath.Join(dir, "leveldb"))
	require.NoError(t, err)
	bolt, err := NewBoltProvider(filepath.Join(dir, "bolt", "ledger.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]DatabaseProvider{"leveldb": level, "bolt": bolt}
}

func TestProviderCRUD(t *testing.T) {
	for name, p := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			v, err := p.Get([]byte("missing"))
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, p.Put([]byte("k"), []byte("v")))
			v, err = p.Get([]byte("k"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), v)

			ok, err := p.Has([]byte("k"))
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, p.Delete([]byte("k")))
			ok, err = p.Has([]byte("k"))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestWithBatchCommitsOrDiscards(t *testing.T) {
	for name, p := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			tm := NewDBTxManager(p)

			err := tm.WithBatch(func(b DatabaseBatch) error {
				b.Put([]byte("a"), []byte("1"))
				b.Put([]byte("b"), []byte("2"))
				b.Delete([]byte("a"))
				return nil
			})
			require.NoError(t, err)

			a, err := p.Get([]byte("a"))
			require.NoError(t, err)
			assert.Nil(t, a)
			b, err := p.Get([]byte("b"))
			require.NoError(t, err)
			assert.Equal(t, []byte("2"), b)

			err = tm.WithBatch(func(b DatabaseBatch) error {
				b.Put([]byte("c"), []byte("3"))
				return errors.New("abort")
			})
			require.Error(t, err)
			c, err := p.Get([]byte("c"))
			require.NoError(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p, err := NewBoltProvider(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.NoError(t, p.Close())

	_, err = NewLevelDBProvider("")
	assert.Error(t, err)
	_, err = NewBoltProvider("")
	assert.Error(t, err)
}

func TestRedisKeyIsHumanReadable(t *testing.T) {
	key := append([]byte(blockKeyPrefix), 0, 0, 0, 0, 0, 0, 1, 2)
	assert.Equal(t, "blk:258", redisKey("", key))
	assert.Equal(t, "saga:blk:258", redisKey("saga", key))
	assert.Equal(t, "blk_meta:length", redisKey("", []byte("blk_meta:length")))
	assert.Equal(t, "blk:short", redisKey("", []byte("blk:short")))
}

func TestBatchLen(t *testing.T) {
	for name, p := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			b := p.Batch()
			defer b.Close()
			b.Put([]byte("a"), []byte("1"))
			b.Delete([]byte("b"))
			assert.Equal(t, 2, b.Len())
			b.Reset()
			assert.Equal(t, 0, b.Len())
		})
	}
}
