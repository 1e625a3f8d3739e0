package tree

import (
	"iter"
	"strconv"
)

type RBColor uint8

const (
	Black RBColor = iota
	Red
)

func (c RBColor) String() string {
	switch c {
	case Black:
		return "Black"
	case Red:
		return "Red"
	default:
	}
	return "RBColor(" + strconv.Itoa(int(c)) + ")"
}

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (d RBDirection) String() string {
	switch d {
	case Left:
		return "Left"
	case Root:
		return "Root"
	case Right:
		return "Right"
	default:
	}
	return "RBDirection(" + strconv.Itoa(int(d)) + ")"
}

type RBTreeErr string

const (
	// ErrEmptyNodeAccess is a programming contract violation: reading the key
	// of the sentinel (nil leaf).
	ErrEmptyNodeAccess RBTreeErr = "[rbtree] access key of an empty node"

	// ErrStaleNode is raised when a node handle is used after the tree was cleared.
	ErrStaleNode RBTreeErr = "[rbtree] node handle outlived the tree generation"

	// ErrRemoveUnimplemented removal is not supported by this tree.
	ErrRemoveUnimplemented RBTreeErr = "[rbtree] remove is unimplemented"

	ErrRedViolation           RBTreeErr = "rbtree red violation"
	ErrBlackViolation         RBTreeErr = "rbtree black violation"
	ErrRootColorViolation     RBTreeErr = "rbtree root color violation"
	ErrOrderViolation         RBTreeErr = "rbtree order violation"
	ErrSentinelColorViolation RBTreeErr = "rbtree sentinel color violation"
	ErrParentLinkViolation    RBTreeErr = "rbtree parent link violation"
)

func (err RBTreeErr) Error() string {
	return string(err)
}

// RBNode is a read-only handle of a position in the tree.
// A sentinel (nil leaf) handle reports IsEmpty and has no key.
type RBNode[K any] interface {
	// Key panics with ErrEmptyNodeAccess on the sentinel.
	Key() K
	Color() RBColor
	IsEmpty() bool
	Direction() RBDirection
	// Left and Right return the sentinel for the children of a leaf.
	Left() RBNode[K]
	Right() RBNode[K]
	// Parent returns nil for the root and the sentinel.
	Parent() RBNode[K]
	Height() uint
	Size() uint
}

// RBTree is not goroutine safe, see NewSyncRBTree.
type RBTree[K any] interface {
	Len() int64
	Height() uint
	IsEmpty() bool
	// Root must be re-resolved after each Insert, rotations may
	// promote another node to the root.
	Root() RBNode[K]
	Min() (RBNode[K], bool)
	Max() (RBNode[K], bool)
	// Insert always succeeds. Duplicated keys are routed to the left subtree.
	Insert(key K) bool
	Contains(key K) bool
	Fetch(key K) (RBNode[K], bool)
	Remove(key K) error
	EachPreorder(visitor func(key K))
	EachInorder(visitor func(key K))
	EachPostorder(visitor func(key K))
	Preorder() iter.Seq[K]
	Inorder() iter.Seq[K]
	Postorder() iter.Seq[K]
	Foreach(action func(idx int64, color RBColor, key K) bool)
	Clear()
}
