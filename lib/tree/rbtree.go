package tree

import (
	"iter"
	"math/bits"

	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xrbt/lib/infra"
)

type rbTree[K any] struct {
	arena  *nodeArena[K]
	root   nodeIdx
	count  int64
	cmp    infra.KeyComparator[K]
	stats  *rbTreeStats
	isDesc bool
}

func (tree *rbTree[K]) comparator() infra.KeyComparator[K] {
	return tree.cmp
}

func (tree *rbTree[K]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K]) IsEmpty() bool {
	return tree.root == nilIdx
}

func (tree *rbTree[K]) Height() uint {
	return tree.arena.height(tree.root)
}

// Root returns the sentinel handle if the tree is empty.
func (tree *rbTree[K]) Root() RBNode[K] {
	return tree.arena.handle(tree.root)
}

func (tree *rbTree[K]) Min() (RBNode[K], bool) {
	if tree.root == nilIdx {
		return nil, false
	}
	return tree.arena.handle(tree.arena.minimum(tree.root)), true
}

func (tree *rbTree[K]) Max() (RBNode[K], bool) {
	if tree.root == nilIdx {
		return nil, false
	}
	return tree.arena.handle(tree.arena.maximum(tree.root)), true
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// p6. In-order keys are non-decreasing. Equal keys are routed to the left.

/*
		 |                         |
		 X                         Y
		/ \     leftRotate(X)     / \
	   L   Y    ============>    X   Yr
		  / \                   / \
		Yl   Yr                L   Yl
*/
func (tree *rbTree[K]) leftRotate(x nodeIdx) {
	arena := tree.arena
	if x == nilIdx || arena.at(x).right == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	dir := arena.direction(x)
	xn := arena.at(x)
	p, y := xn.parent, xn.right
	yn := arena.at(y)

	xn.right, yn.left = yn.left, x
	if xn.right != nilIdx {
		arena.at(xn.right).parent = x
	}
	xn.parent, yn.parent = y, p

	switch dir {
	case Root:
		tree.root = y
	case Left:
		arena.at(p).left = y
	case Right:
		arena.at(p).right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	tree.stats.RecordRotation(Left)
}

/*
		 |                         |
		 X                         Y
		/ \     rightRotate(X)    / \
	   Y   R    ============>   Yl   X
	  / \                           / \
	Yl   Yr                       Yr   R
*/
func (tree *rbTree[K]) rightRotate(x nodeIdx) {
	arena := tree.arena
	if x == nilIdx || arena.at(x).left == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	dir := arena.direction(x)
	xn := arena.at(x)
	p, y := xn.parent, xn.left
	yn := arena.at(y)

	xn.left, yn.right = yn.right, x
	if xn.left != nilIdx {
		arena.at(xn.left).parent = x
	}
	xn.parent, yn.parent = y, p

	switch dir {
	case Root:
		tree.root = y
	case Left:
		arena.at(p).left = y
	case Right:
		arena.at(p).right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	tree.stats.RecordRotation(Right)
}

// Insert always succeeds, the duplicated keys are kept.
// i1: Empty rbtree, the new node becomes the root and it is painted black
// by the rebalance.
func (tree *rbTree[K]) Insert(key K) bool {
	var (
		x, y = tree.root, nilIdx
		dir  = Root
	)
	for x != nilIdx {
		y = x
		if /* less or equal */ tree.cmp(key, tree.arena.at(x).key) <= 0 {
			x, dir = tree.arena.at(x).left, Left
		} else /* greater */ {
			x, dir = tree.arena.at(x).right, Right
		}
	}

	z := tree.arena.alloc(key, y)
	switch dir {
	case Root:
		tree.root = z
	case Left:
		tree.arena.at(y).left = z
	case Right:
		tree.arena.at(y).right = z
	default:
	}
	tree.count++
	tree.stats.RecordInsert()
	tree.insertRebalance(z)
	return true
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: X is the root. Paint it black.

im2: X's parent P is black. Nothing violated.

im3: Both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Continue to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black (or NIL). (red-violation)
X is the inner grandchild, opposite direction to P. Rotate P to the
opposite direction, then P plays the X role in im5.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: X is the outer grandchild, the same direction as P.

	    [G]                 [P]
	    / \    rotate(G)    / \
	  <P> [U]  ========>  <X> <G>
	  /   repaint               \
	<X>                         [U]
*/
func (tree *rbTree[K]) insertRebalance(x nodeIdx) {
	arena := tree.arena
	for x != nilIdx {
		if /* im1 */ x == tree.root {
			arena.at(x).color = Black
			tree.stats.RecordFixup(fixupRoot)
			return
		}

		p := arena.at(x).parent
		if /* im2 */ arena.isBlack(p) {
			tree.stats.RecordFixup(fixupParentBlack)
			return
		}

		// The red parent is never the root, so the grandpa exists.
		g := arena.at(p).parent
		if g == nilIdx {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] red parent without grandpa")
		}

		if u := arena.sibling(p); /* im3 */ arena.isRed(u) {
			arena.at(p).color = Black
			arena.at(u).color = Black
			arena.at(g).color = Red
			tree.stats.RecordFixup(fixupRedUncle)
			x = g
			continue
		}

		dir, pDir := arena.direction(x), arena.direction(p)
		if /* im4 */ dir != pDir {
			switch dir {
			case Left:
				tree.rightRotate(p)
			case Right:
				tree.leftRotate(p)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] insert violate (im4)")
			}
			tree.stats.RecordFixup(fixupInnerGrandchild)
			x, p = p, x // enter im5 to fix
		} else {
			tree.stats.RecordFixup(fixupOuterGrandchild)
		}

		/* im5 */
		arena.at(p).color = Black
		arena.at(g).color = Red
		switch pDir {
		case Left:
			tree.rightRotate(g)
		case Right:
			tree.leftRotate(g)
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] insert violate (im5)")
		}
		return
	}
}

func (tree *rbTree[K]) search(key K) nodeIdx {
	for x := tree.root; x != nilIdx; {
		res := tree.cmp(key, tree.arena.at(x).key)
		if res == 0 {
			return x
		} else if res < 0 {
			x = tree.arena.at(x).left
		} else {
			x = tree.arena.at(x).right
		}
	}
	return nilIdx
}

// Fetch returns the first node matched on the search path.
func (tree *rbTree[K]) Fetch(key K) (RBNode[K], bool) {
	x := tree.search(key)
	if x == nilIdx {
		return nil, false
	}
	return tree.arena.handle(x), true
}

func (tree *rbTree[K]) Contains(key K) bool {
	return tree.search(key) != nilIdx
}

// Remove the rebalance on removal is out of this tree's scope. It fails
// explicitly and leaves the tree untouched.
func (tree *rbTree[K]) Remove(key K) error {
	return ErrRemoveUnimplemented
}

func (tree *rbTree[K]) stackCap() int {
	// The height of rbtree is at most 2*log2(n+1).
	return bits.Len64(uint64(tree.count)+1)<<1 + 1
}

// The sequences stop if the tree is cleared in the middle of an iteration.
// Inserting during an iteration leads to an undefined visiting order.

func (tree *rbTree[K]) preorderIdx() iter.Seq[nodeIdx] {
	return func(yield func(nodeIdx) bool) {
		if tree.root == nilIdx {
			return
		}
		arena, gen := tree.arena, tree.arena.gen
		stack := make([]nodeIdx, 0, tree.stackCap())
		stack = append(stack, tree.root)
		for size := len(stack); size > 0 && arena.gen == gen; size = len(stack) {
			x := stack[size-1]
			stack = stack[:size-1]
			if !yield(x) || arena.gen != gen {
				return
			}
			if r := arena.at(x).right; r != nilIdx {
				stack = append(stack, r)
			}
			if l := arena.at(x).left; l != nilIdx {
				stack = append(stack, l)
			}
		}
	}
}

func (tree *rbTree[K]) inorderIdx() iter.Seq[nodeIdx] {
	return func(yield func(nodeIdx) bool) {
		arena, gen := tree.arena, tree.arena.gen
		stack := make([]nodeIdx, 0, tree.stackCap())
		for aux := tree.root; aux != nilIdx; aux = arena.at(aux).left {
			stack = append(stack, aux)
		}
		for size := len(stack); size > 0 && arena.gen == gen; size = len(stack) {
			x := stack[size-1]
			stack = stack[:size-1]
			if !yield(x) || arena.gen != gen {
				return
			}
			for aux := arena.at(x).right; aux != nilIdx; aux = arena.at(aux).left {
				stack = append(stack, aux)
			}
		}
	}
}

func (tree *rbTree[K]) postorderIdx() iter.Seq[nodeIdx] {
	return func(yield func(nodeIdx) bool) {
		arena, gen := tree.arena, tree.arena.gen
		stack := make([]nodeIdx, 0, tree.stackCap())
		last, aux := nilIdx, tree.root
		for (len(stack) > 0 || aux != nilIdx) && arena.gen == gen {
			if aux != nilIdx {
				stack = append(stack, aux)
				aux = arena.at(aux).left
				continue
			}
			top := stack[len(stack)-1]
			if r := arena.at(top).right; r != nilIdx && r != last {
				aux = r
				continue
			}
			if !yield(top) || arena.gen != gen {
				return
			}
			last = top
			stack = stack[:len(stack)-1]
		}
	}
}

func (tree *rbTree[K]) keys(seq iter.Seq[nodeIdx]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for x := range seq {
			if !yield(tree.arena.at(x).key) {
				return
			}
		}
	}
}

func (tree *rbTree[K]) Preorder() iter.Seq[K] {
	return tree.keys(tree.preorderIdx())
}

func (tree *rbTree[K]) Inorder() iter.Seq[K] {
	return tree.keys(tree.inorderIdx())
}

func (tree *rbTree[K]) Postorder() iter.Seq[K] {
	return tree.keys(tree.postorderIdx())
}

func each[K any](seq iter.Seq[K], visitor func(key K)) {
	if visitor == nil {
		return
	}
	for key := range seq {
		visitor(key)
	}
}

func (tree *rbTree[K]) EachPreorder(visitor func(key K)) {
	each(tree.Preorder(), visitor)
}

func (tree *rbTree[K]) EachInorder(visitor func(key K)) {
	each(tree.Inorder(), visitor)
}

func (tree *rbTree[K]) EachPostorder(visitor func(key K)) {
	each(tree.Postorder(), visitor)
}

// Foreach inorder traversal with the node color, stops if action returns false.
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	if action == nil {
		return
	}
	idx := int64(0)
	for x := range tree.inorderIdx() {
		node := tree.arena.at(x)
		if !action(idx, node.color, node.key) {
			return
		}
		idx++
	}
}

// Clear releases all nodes. The node handles fetched before are stale.
func (tree *rbTree[K]) Clear() {
	released := tree.count
	tree.arena.reset()
	tree.root = nilIdx
	tree.count = 0
	tree.stats.RecordClear(released)
}

type RBTreeOpt[K any] func(*rbTree[K])

// WithRBTreeDesc reverses the key order, the in-order traversal becomes descending.
func WithRBTreeDesc[K any]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isDesc = true
	}
}

// WithRBTreeCapacity pre-allocates the node arena.
func WithRBTreeCapacity[K any](capacity int) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		if capacity <= 0 {
			return
		}
		tree.arena = newNodeArena[K](capacity)
	}
}

// WithRBTreeStats records the inserts, rotations and fixup steps by the
// OpenTelemetry meter provider. The global meter provider is used if provider is nil.
func WithRBTreeStats[K any](name string, provider metric.MeterProvider) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.stats = newRBTreeStats(name, provider)
	}
}

func NewRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) RBTree[K] {
	return NewRBTreeWithComparator[K](infra.OrderedKeyCompare[K], opts...)
}

func NewRBTreeWithComparator[K any](cmp infra.KeyComparator[K], opts ...RBTreeOpt[K]) RBTree[K] {
	if cmp == nil {
		panic("[rbtree] key comparator must be not nil")
	}
	tree := &rbTree[K]{
		root:   nilIdx,
		count:  0,
		cmp:    cmp,
		isDesc: false,
	}
	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	if tree.arena == nil {
		tree.arena = newNodeArena[K](0)
	}
	if tree.isDesc {
		tree.cmp = infra.ReverseKeyComparator(tree.cmp)
	}
	return tree
}
