package db

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providersUnderTest(t *testing.T) map[string]DatabaseProvider {
	t.Helper()
	providers := map[string]DatabaseProvider{
		"memory": NewMemoryProvider(),
	}

	level, err := NewLevelDBProvider(t.TempDir())
	require.NoError(t, err)
	providers["leveldb"] = level

	bolt, err := NewBoltProvider(t.TempDir())
	require.NoError(t, err)
	providers["bbolt"] = bolt

	// Redis runs only when a server is available
	if addr := os.Getenv("REMIT_TEST_REDIS"); addr != "" {
		r, err := NewRedisProvider(addr, 15)
		require.NoError(t, err)
		providers["redis"] = r
	}

	t.Cleanup(func() {
		for _, p := range providers {
			_ = p.Close()
		}
	})
	return providers
}

func TestProviderBasicOperations(t *testing.T) {
	for name, p := range providersUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			value, err := p.Get([]byte("missing"))
			require.NoError(t, err)
			assert.Nil(t, value)

			require.NoError(t, p.Put([]byte("k1"), []byte("v1")))
			value, err = p.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), value)

			ok, err := p.Has([]byte("k1"))
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, p.Delete([]byte("k1")))
			ok, err = p.Has([]byte("k1"))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestProviderBatchIsAtomic(t *testing.T) {
	for name, p := range providersUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, p.Put([]byte("batch:gone"), []byte("x")))

			b := p.Batch()
			b.Put([]byte("batch:a"), []byte("1"))
			b.Put([]byte("batch:b"), []byte("2"))
			b.Delete([]byte("batch:gone"))

			// nothing is visible before Write
			value, err := p.Get([]byte("batch:a"))
			require.NoError(t, err)
			assert.Nil(t, value)

			require.NoError(t, b.Write())
			require.NoError(t, b.Close())

			value, err = p.Get([]byte("batch:b"))
			require.NoError(t, err)
			assert.Equal(t, []byte("2"), value)
			ok, err := p.Has([]byte("batch:gone"))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestProviderIteratePrefix(t *testing.T) {
	for name, p := range providersUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, p.Put([]byte("iter:1"), []byte("a")))
			require.NoError(t, p.Put([]byte("iter:2"), []byte("b")))
			require.NoError(t, p.Put([]byte("other:1"), []byte("c")))

			seen := map[string]string{}
			err := p.IteratePrefix([]byte("iter:"), func(key, value []byte) bool {
				seen[string(key)] = string(value)
				return true
			})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"iter:1": "a", "iter:2": "b"}, seen)

			count := 0
			err = p.IteratePrefix([]byte("iter:"), func(key, value []byte) bool {
				count++
				return false
			})
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestTxManagerDiscardsFailedBatch(t *testing.T) {
	p := NewMemoryProvider()
	tm := NewDBTxManager(p)

	boom := errors.New("boom")
	err := tm.WithBatch(func(batch DatabaseBatch) error {
		batch.Put([]byte("k"), []byte("v"))
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	ok, err := p.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tm.WithBatch(func(batch DatabaseBatch) error {
		batch.Put([]byte("k"), []byte("v"))
		return nil
	}))
	ok, err = p.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLevelDBReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLevelDBProvider(dir)
	require.NoError(t, err)
	require.NoError(t, p.Put([]byte("durable"), []byte("yes")))
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	p, err = NewLevelDBProvider(dir)
	require.NoError(t, err)
	defer p.Close()
	value, err := p.Get([]byte("durable"))
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), value)
}

func TestRedisKeysAreReadable(t *testing.T) {
	key := append([]byte("event:"), 0, 0, 0, 0, 0, 0, 0, 42)
	assert.Equal(t, "event:42", convertKeyToHumanReadable(key))
	assert.Equal(t, "transfer:7", convertKeyToHumanReadable([]byte("transfer:7")))
}
