package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestValidate_Violations(t *testing.T) {
	testcases := []struct {
		name     string
		keys     []int
		corrupt  func(tree *rbTree[int])
		expected []error
	}{
		{
			name: "valid",
			keys: []int{10, 20, 30, 40},
		},
		{
			name: "red root",
			keys: []int{10, 20, 30},
			corrupt: func(tree *rbTree[int]) {
				tree.arena.at(tree.root).color = Red
			},
			// The red root has red children as well.
			expected: []error{ErrRootColorViolation, ErrRedViolation},
		},
		{
			name: "red sentinel",
			keys: []int{10, 20, 30},
			corrupt: func(tree *rbTree[int]) {
				tree.arena.at(nilIdx).color = Red
			},
			expected: []error{ErrSentinelColorViolation},
		},
		{
			name: "red parent with red child",
			// 20 black root, 10 and 30 black, 40 red leaf.
			keys: []int{10, 20, 30, 40},
			corrupt: func(tree *rbTree[int]) {
				thirty := tree.arena.at(tree.root).right
				tree.arena.at(thirty).color = Red
			},
			expected: []error{ErrRedViolation, ErrBlackViolation},
		},
		{
			name: "unbalanced black depth",
			keys: []int{10, 20, 30, 40},
			corrupt: func(tree *rbTree[int]) {
				forty := tree.arena.at(tree.arena.at(tree.root).right).right
				tree.arena.at(forty).color = Black
			},
			expected: []error{ErrBlackViolation},
		},
		{
			name: "swapped keys",
			keys: []int{10, 20, 30},
			corrupt: func(tree *rbTree[int]) {
				l, r := tree.arena.at(tree.root).left, tree.arena.at(tree.root).right
				tree.arena.at(l).key, tree.arena.at(r).key = tree.arena.at(r).key, tree.arena.at(l).key
			},
			expected: []error{ErrOrderViolation},
		},
		{
			name: "broken parent link",
			keys: []int{10, 20, 30},
			corrupt: func(tree *rbTree[int]) {
				l, r := tree.arena.at(tree.root).left, tree.arena.at(tree.root).right
				tree.arena.at(l).parent = r
			},
			expected: []error{ErrParentLinkViolation},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			tree := newIntTree(tc.keys...)
			require.NoError(tt, Validate[int](tree))
			if tc.corrupt != nil {
				tc.corrupt(tree)
			}
			err := Validate[int](tree)
			if len(tc.expected) == 0 {
				require.NoError(tt, err)
				return
			}
			require.Error(tt, err)
			errs := multierr.Errors(err)
			require.Len(tt, errs, len(tc.expected))
			for _, expected := range tc.expected {
				require.ErrorIs(tt, err, expected)
			}
		})
	}
}

func TestValidate_NilAndSyncTree(t *testing.T) {
	require.NoError(t, Validate[int](nil))

	tree := NewSyncRBTree[int](newIntTree(3, 1, 2))
	require.NoError(t, Validate[int](tree))

	inner := tree.(*syncRBTree[int]).tree.(*rbTree[int])
	l, r := inner.arena.at(inner.root).left, inner.arena.at(inner.root).right
	inner.arena.at(l).key, inner.arena.at(r).key = inner.arena.at(r).key, inner.arena.at(l).key
	require.ErrorIs(t, Validate[int](tree), ErrOrderViolation)
}

func TestBlackDepth(t *testing.T) {
	tree := newIntTree(1, 2, 3, 4, 5, 6, 7, 8)
	leaves := nilLeafParents[int](tree)
	require.NotEmpty(t, leaves)

	depths := make(map[int]struct{}, 1)
	for _, leaf := range leaves {
		depths[blackDepthTo[int](leaf)] = struct{}{}
	}
	require.Len(t, depths, 1)
}
