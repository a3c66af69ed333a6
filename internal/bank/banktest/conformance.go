// Package banktest holds the behavioural test suite every bank backend must
// pass.
package banktest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConformance exercises a backend produced by newPlugin. Each subtest gets
// a fresh backend.
func RunConformance(t *testing.T, newPlugin func(t *testing.T) bank.Plugin) {
	t.Helper()

	open := func(t *testing.T) bank.Plugin {
		p := newPlugin(t)
		t.Cleanup(func() { _ = p.Close() })
		return p
	}

	t.Run("create then get", func(t *testing.T) {
		ctx := context.Background()
		p := open(t)

		require.NoError(t, p.CreateObject(ctx, "cp/1/metadata", []byte("v1")))

		got, err := p.GetObject(ctx, "cp/1/metadata")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)
	})

	t.Run("create existing key fails", func(t *testing.T) {
		ctx := context.Background()
		p := open(t)

		require.NoError(t, p.CreateObject(ctx, "k", []byte("first")))
		err := p.CreateObject(ctx, "k", []byte("second"))
		assert.ErrorIs(t, err, bank.ErrObjectExists)

		got, err := p.GetObject(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), got)
	})

	t.Run("update upserts", func(t *testing.T) {
		ctx := context.Background()
		p := open(t)

		require.NoError(t, p.UpdateObject(ctx, "k", []byte("a")))
		require.NoError(t, p.UpdateObject(ctx, "k", []byte("b")))

		got, err := p.GetObject(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), got)
	})

	t.Run("get missing key", func(t *testing.T) {
		p := open(t)
		_, err := p.GetObject(context.Background(), "nope")
		assert.ErrorIs(t, err, bank.ErrObjectNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		ctx := context.Background()
		p := open(t)

		require.NoError(t, p.UpdateObject(ctx, "a/b", []byte("x")))
		require.NoError(t, p.DeleteObject(ctx, "a/b"))
		require.NoError(t, p.DeleteObject(ctx, "a/b"))

		_, err := p.GetObject(ctx, "a/b")
		assert.ErrorIs(t, err, bank.ErrObjectNotFound)
	})

	t.Run("list by prefix is sorted", func(t *testing.T) {
		ctx := context.Background()
		p := open(t)

		for _, k := range []string{"p/cp2/meta", "p/cp1/res/b", "p/cp1/meta", "q/other", "p/cp1/res/a"} {
			require.NoError(t, p.UpdateObject(ctx, k, []byte(k)))
		}

		keys, err := p.ListObjects(ctx, "p/cp1/")
		require.NoError(t, err)
		assert.Equal(t, []string{"p/cp1/meta", "p/cp1/res/a", "p/cp1/res/b"}, keys)

		all, err := p.ListObjects(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 5)

		none, err := p.ListObjects(ctx, "zzz/")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("nested keys coexist", func(t *testing.T) {
		ctx := context.Background()
		p := open(t)

		require.NoError(t, p.UpdateObject(ctx, "a/b", []byte("parent")))
		require.NoError(t, p.UpdateObject(ctx, "a/b/c", []byte("child")))

		parent, err := p.GetObject(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, []byte("parent"), parent)
		child, err := p.GetObject(ctx, "a/b/c")
		require.NoError(t, err)
		assert.Equal(t, []byte("child"), child)
	})

	t.Run("dot-prefixed segments are listed", func(t *testing.T) {
		ctx := context.Background()
		p := open(t)

		keys := []string{"cp/1/.snap/metadata", "cp/1/res/.hidden", "cp/1/res/visible"}
		for _, k := range keys {
			require.NoError(t, p.CreateObject(ctx, k, []byte(k)))
		}

		listed, err := p.ListObjects(ctx, "cp/1/")
		require.NoError(t, err)
		assert.Equal(t, keys, listed)

		for _, k := range listed {
			require.NoError(t, p.DeleteObject(ctx, k))
		}
		left, err := p.ListObjects(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("concurrent writes to distinct keys", func(t *testing.T) {
		ctx := context.Background()
		p := open(t)
		const n = 32

		var wg sync.WaitGroup
		wg.Add(n)
		for i := range n {
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("res/%02d", i)
				assert.NoError(t, p.CreateObject(ctx, key, []byte(key)))
			}(i)
		}
		wg.Wait()

		keys, err := p.ListObjects(ctx, "res/")
		require.NoError(t, err)
		require.Len(t, keys, n)
		for i, k := range keys {
			v, err := p.GetObject(ctx, k)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("res/%02d", i), string(v))
		}
	})
}
