package tree

import (
	"math"
)

// References:
// https://github.com/src-d/hercules/blob/master/internal/rbtree/rbtree.go
// Nodes live in a slice and link each other by index, so the parent
// back-reference never owns anything and a rotation is plain index swapping.

type nodeIdx uint32

// The slot 0 of every arena is the shared sentinel (nil leaf).
// It is always black and it is never written after the arena reset.
const nilIdx nodeIdx = 0

type arenaNode[K any] struct {
	key    K
	parent nodeIdx
	left   nodeIdx
	right  nodeIdx
	color  RBColor
}

type nodeArena[K any] struct {
	nodes []arenaNode[K]
	// Bumped by reset, the handles of the previous generation are stale.
	gen uint64
}

func newNodeArena[K any](capacity int) *nodeArena[K] {
	if capacity < 0 {
		capacity = 0
	}
	arena := &nodeArena[K]{
		nodes: make([]arenaNode[K], 1, capacity+1),
	}
	arena.nodes[nilIdx].color = Black
	return arena
}

// The returned node is red, with sentinel children.
// Pointers returned by at() before alloc must not be used after it.
func (arena *nodeArena[K]) alloc(key K, parent nodeIdx) nodeIdx {
	if uint64(len(arena.nodes)) > math.MaxUint32 {
		panic( /* debug assertion */ "[rbtree] node arena exhausted")
	}
	arena.nodes = append(arena.nodes, arenaNode[K]{
		key:    key,
		parent: parent,
		left:   nilIdx,
		right:  nilIdx,
		color:  Red,
	})
	return nodeIdx(len(arena.nodes) - 1)
}

func (arena *nodeArena[K]) at(idx nodeIdx) *arenaNode[K] {
	return &arena.nodes[idx]
}

func (arena *nodeArena[K]) size() int {
	return len(arena.nodes) - 1
}

func (arena *nodeArena[K]) reset() {
	// Drop the keys' references for GC.
	clear(arena.nodes)
	arena.nodes = arena.nodes[:1]
	arena.nodes[nilIdx].color = Black
	arena.gen++
}

func (arena *nodeArena[K]) isRed(idx nodeIdx) bool {
	return idx != nilIdx && arena.nodes[idx].color == Red
}

func (arena *nodeArena[K]) isBlack(idx nodeIdx) bool {
	return idx == nilIdx || arena.nodes[idx].color == Black
}

func (arena *nodeArena[K]) direction(idx nodeIdx) RBDirection {
	if idx == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}
	p := arena.nodes[idx].parent
	if p == nilIdx {
		return Root
	}
	if arena.nodes[p].left == idx {
		return Left
	}
	return Right
}

func (arena *nodeArena[K]) sibling(idx nodeIdx) nodeIdx {
	switch arena.direction(idx) {
	case Left:
		return arena.nodes[arena.nodes[idx].parent].right
	case Right:
		return arena.nodes[arena.nodes[idx].parent].left
	default:
	}
	return nilIdx
}

func (arena *nodeArena[K]) minimum(idx nodeIdx) nodeIdx {
	for idx != nilIdx && arena.nodes[idx].left != nilIdx {
		idx = arena.nodes[idx].left
	}
	return idx
}

func (arena *nodeArena[K]) maximum(idx nodeIdx) nodeIdx {
	for idx != nilIdx && arena.nodes[idx].right != nilIdx {
		idx = arena.nodes[idx].right
	}
	return idx
}

// The recursion depth is bounded by the tree height.
func (arena *nodeArena[K]) height(idx nodeIdx) uint {
	if idx == nilIdx {
		return 0
	}
	return 1 + max(arena.height(arena.nodes[idx].left), arena.height(arena.nodes[idx].right))
}

func (arena *nodeArena[K]) subtreeSize(idx nodeIdx) uint {
	if idx == nilIdx {
		return 0
	}
	return 1 + arena.subtreeSize(arena.nodes[idx].left) + arena.subtreeSize(arena.nodes[idx].right)
}

var _ RBNode[int] = rbNode[int]{}

// rbNode is a generation-checked handle of an arena slot.
type rbNode[K any] struct {
	arena *nodeArena[K]
	idx   nodeIdx
	gen   uint64
}

func (arena *nodeArena[K]) handle(idx nodeIdx) rbNode[K] {
	return rbNode[K]{
		arena: arena,
		idx:   idx,
		gen:   arena.gen,
	}
}

func (node rbNode[K]) slot() *arenaNode[K] {
	if node.arena == nil || node.gen != node.arena.gen || int(node.idx) >= len(node.arena.nodes) {
		panic(ErrStaleNode)
	}
	return node.arena.at(node.idx)
}

func (node rbNode[K]) Key() K {
	slot := node.slot()
	if node.idx == nilIdx {
		panic(ErrEmptyNodeAccess)
	}
	return slot.key
}

func (node rbNode[K]) Color() RBColor {
	return node.slot().color
}

func (node rbNode[K]) IsEmpty() bool {
	_ = node.slot()
	return node.idx == nilIdx
}

func (node rbNode[K]) Direction() RBDirection {
	_ = node.slot()
	if node.idx == nilIdx {
		panic(ErrEmptyNodeAccess)
	}
	return node.arena.direction(node.idx)
}

func (node rbNode[K]) Left() RBNode[K] {
	slot := node.slot()
	if node.idx == nilIdx {
		return nil
	}
	return node.arena.handle(slot.left)
}

func (node rbNode[K]) Right() RBNode[K] {
	slot := node.slot()
	if node.idx == nilIdx {
		return nil
	}
	return node.arena.handle(slot.right)
}

func (node rbNode[K]) Parent() RBNode[K] {
	slot := node.slot()
	if node.idx == nilIdx || slot.parent == nilIdx {
		return nil
	}
	return node.arena.handle(slot.parent)
}

func (node rbNode[K]) Height() uint {
	_ = node.slot()
	return node.arena.height(node.idx)
}

func (node rbNode[K]) Size() uint {
	_ = node.slot()
	return node.arena.subtreeSize(node.idx)
}
