package tree

import (
	"slices"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyncRBTree_ConcurrentInsert(t *testing.T) {
	const (
		writers = 8
		perW    = 1000
	)
	tree := NewSyncRBTree[int](NewRBTree[int]())
	require.Same(t, tree, NewSyncRBTree[int](tree))

	var wg sync.WaitGroup
	wg.Add(writers * 2)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perW; i++ {
				require.True(t, tree.Insert(w*perW+i))
			}
		}(w)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perW; i++ {
				_ = tree.Contains(w*perW + i)
				_ = tree.Len()
				_ = tree.Height()
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, int64(writers*perW), tree.Len())
	require.NoError(t, Validate(tree))

	keys := slices.Collect(tree.Inorder())
	require.Len(t, keys, writers*perW)
	require.True(t, sort.IntsAreSorted(keys))
	for i := 0; i < writers*perW; i++ {
		require.True(t, tree.Contains(i))
	}

	_min, ok := tree.Min()
	require.True(t, ok)
	require.Equal(t, 0, _min.Key())
	_max, ok := tree.Max()
	require.True(t, ok)
	require.Equal(t, writers*perW-1, _max.Key())
}

func TestSyncRBTree_Delegates(t *testing.T) {
	tree := NewSyncRBTree[int](NewRBTree[int]())
	require.True(t, tree.IsEmpty())
	require.True(t, tree.Root().IsEmpty())
	for _, key := range []int{10, 20, 30} {
		tree.Insert(key)
	}
	require.False(t, tree.IsEmpty())
	require.Equal(t, 20, tree.Root().Key())

	node, ok := tree.Fetch(30)
	require.True(t, ok)
	require.Equal(t, 30, node.Key())
	require.ErrorIs(t, tree.Remove(30), ErrRemoveUnimplemented)

	pre, in, post := collect(tree)
	require.Equal(t, []int{20, 10, 30}, pre)
	require.Equal(t, []int{10, 20, 30}, in)
	require.Equal(t, []int{10, 30, 20}, post)
	require.Equal(t, pre, slices.Collect(tree.Preorder()))
	require.Equal(t, post, slices.Collect(tree.Postorder()))

	colors := make([]RBColor, 0, 3)
	tree.Foreach(func(idx int64, color RBColor, key int) bool {
		colors = append(colors, color)
		return true
	})
	require.Equal(t, []RBColor{Red, Black, Red}, colors)

	// The read lock is released on early stop.
	for range tree.Inorder() {
		break
	}
	tree.Clear()
	require.Equal(t, int64(0), tree.Len())

	require.Panics(t, func() {
		NewSyncRBTree[int](nil)
	})
}
