package tree

import (
	"go.uber.org/multierr"

	"github.com/benz9527/xrbt/lib/infra"
)

func isNilLeaf[K any](node RBNode[K]) bool {
	return node == nil || node.IsEmpty()
}

func isRed[K any](node RBNode[K]) bool {
	return !isNilLeaf[K](node) && node.Color() == Red
}

func isBlack[K any](node RBNode[K]) bool {
	return isNilLeaf[K](node) || node.Color() == Black
}

func blackDepthTo[K any](target RBNode[K]) int {
	depth := 0
	for aux := target; aux != nil; aux = aux.Parent() {
		if isBlack[K](aux) {
			depth++
		}
	}
	return depth
}

// DFS (preorder) over all non-nil nodes, stops if fn returns false.
func walk[K any](root RBNode[K], fn func(node RBNode[K]) bool) {
	if isNilLeaf[K](root) {
		return
	}
	stack := make([]RBNode[K], 0, 64)
	stack = append(stack, root)
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		if !fn(aux) {
			return
		}
		if r := aux.Right(); !isNilLeaf[K](r) {
			stack = append(stack, r)
		}
		if l := aux.Left(); !isNilLeaf[K](l) {
			stack = append(stack, l)
		}
	}
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

func SentinelColorValidate[K any](tree RBTree[K]) (err error) {
	root := tree.Root()
	if root == nil {
		return nil
	}
	if root.IsEmpty() {
		if root.Color() != Black {
			return ErrSentinelColorViolation
		}
		return nil
	}
	walk[K](root, func(node RBNode[K]) bool {
		for _, child := range [2]RBNode[K]{node.Left(), node.Right()} {
			if child != nil && child.IsEmpty() && child.Color() != Black {
				err = ErrSentinelColorViolation
				return false
			}
		}
		return true
	})
	return err
}

func RootColorValidate[K any](tree RBTree[K]) error {
	if root := tree.Root(); !isNilLeaf[K](root) && root.Color() != Black {
		return ErrRootColorViolation
	}
	return nil
}

// RedViolationValidate a red node does not have a red child.
func RedViolationValidate[K any](tree RBTree[K]) (err error) {
	walk[K](tree.Root(), func(node RBNode[K]) bool {
		if isRed[K](node) && (isRed[K](node.Left()) || isRed[K](node.Right())) {
			err = ErrRedViolation
			return false
		}
		return true
	})
	return err
}

// Load all the nodes with at least one nil leaf child.
func nilLeafParents[K any](tree RBTree[K]) []RBNode[K] {
	leaves := make([]RBNode[K], 0, 64)
	walk[K](tree.Root(), func(node RBNode[K]) bool {
		if /* nil leaves, keep one */ isNilLeaf[K](node.Left()) || isNilLeaf[K](node.Right()) {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

Each nil leaf to root node black depth are equal.
*/
func BlackViolationValidate[K any](tree RBTree[K]) error {
	leaves := nilLeafParents[K](tree)
	if len(leaves) == 0 {
		return nil
	}

	blackDepth := blackDepthTo[K](leaves[0])
	for i := 1; i < len(leaves); i++ {
		if blackDepthTo[K](leaves[i]) != blackDepth {
			return ErrBlackViolation
		}
	}
	return nil
}

// ParentLinkValidate every child refers back to its parent.
func ParentLinkValidate[K any](tree RBTree[K]) (err error) {
	root := tree.Root()
	if !isNilLeaf[K](root) && root.Parent() != nil {
		return ErrParentLinkViolation
	}
	walk[K](root, func(node RBNode[K]) bool {
		for _, child := range [2]RBNode[K]{node.Left(), node.Right()} {
			if !isNilLeaf[K](child) && child.Parent() != node {
				err = ErrParentLinkViolation
				return false
			}
		}
		return true
	})
	return err
}

// OrderViolationValidate the in-order keys are non-decreasing by the tree's comparator.
// A tree without an accessible comparator is skipped.
func OrderViolationValidate[K any](tree RBTree[K]) error {
	holder, ok := tree.(interface{ comparator() infra.KeyComparator[K] })
	if !ok || holder.comparator() == nil {
		return nil
	}
	cmp := holder.comparator()

	var (
		prev    K
		hasPrev bool
		err     error
	)
	tree.Foreach(func(idx int64, color RBColor, key K) bool {
		if hasPrev && cmp(prev, key) > 0 {
			err = ErrOrderViolation
			return false
		}
		prev, hasPrev = key, true
		return true
	})
	return err
}

// Validate checks all the rbtree properties and combines the violations.
func Validate[K any](tree RBTree[K]) error {
	if tree == nil {
		return nil
	}
	return multierr.Combine(
		SentinelColorValidate[K](tree),
		RootColorValidate[K](tree),
		RedViolationValidate[K](tree),
		BlackViolationValidate[K](tree),
		ParentLinkValidate[K](tree),
		OrderViolationValidate[K](tree),
	)
}
