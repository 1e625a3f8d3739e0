package tree

import (
	"iter"
	"sync"

	"github.com/benz9527/xrbt/lib/infra"
)

// syncRBTree serializes the mutations behind an exclusive lock, because a
// rotation transiently breaks the invariants and must never be observed.
// The node handles returned by Root, Min, Max and Fetch are read without
// the lock, they must not be used concurrently with Insert or Clear.
// The visitors and the sequence consumers run under the read lock, so they
// must not call back into the tree mutations.
type syncRBTree[K any] struct {
	lock sync.RWMutex
	tree RBTree[K]
}

func (t *syncRBTree[K]) comparator() infra.KeyComparator[K] {
	if holder, ok := t.tree.(interface{ comparator() infra.KeyComparator[K] }); ok {
		return holder.comparator()
	}
	return nil
}

func (t *syncRBTree[K]) Len() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Len()
}

func (t *syncRBTree[K]) Height() uint {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Height()
}

func (t *syncRBTree[K]) IsEmpty() bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.IsEmpty()
}

func (t *syncRBTree[K]) Root() RBNode[K] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Root()
}

func (t *syncRBTree[K]) Min() (RBNode[K], bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Min()
}

func (t *syncRBTree[K]) Max() (RBNode[K], bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Max()
}

func (t *syncRBTree[K]) Insert(key K) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Insert(key)
}

func (t *syncRBTree[K]) Contains(key K) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Contains(key)
}

func (t *syncRBTree[K]) Fetch(key K) (RBNode[K], bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Fetch(key)
}

func (t *syncRBTree[K]) Remove(key K) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Remove(key)
}

func (t *syncRBTree[K]) EachPreorder(visitor func(key K)) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.tree.EachPreorder(visitor)
}

func (t *syncRBTree[K]) EachInorder(visitor func(key K)) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.tree.EachInorder(visitor)
}

func (t *syncRBTree[K]) EachPostorder(visitor func(key K)) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.tree.EachPostorder(visitor)
}

func (t *syncRBTree[K]) locked(seq func() iter.Seq[K]) iter.Seq[K] {
	return func(yield func(K) bool) {
		t.lock.RLock()
		defer t.lock.RUnlock()
		for key := range seq() {
			if !yield(key) {
				return
			}
		}
	}
}

func (t *syncRBTree[K]) Preorder() iter.Seq[K] {
	return t.locked(t.tree.Preorder)
}

func (t *syncRBTree[K]) Inorder() iter.Seq[K] {
	return t.locked(t.tree.Inorder)
}

func (t *syncRBTree[K]) Postorder() iter.Seq[K] {
	return t.locked(t.tree.Postorder)
}

func (t *syncRBTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.tree.Foreach(action)
}

func (t *syncRBTree[K]) Clear() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.tree.Clear()
}

// NewSyncRBTree wraps tree to be goroutine safe. The tree must not be
// accessed directly any more.
func NewSyncRBTree[K any](tree RBTree[K]) RBTree[K] {
	if tree == nil {
		panic("[rbtree] sync rbtree wraps a nil tree")
	}
	if st, ok := tree.(*syncRBTree[K]); ok {
		return st
	}
	return &syncRBTree[K]{
		tree: tree,
	}
}
