// Package broadphase maintains an incrementally updated dynamic AABB tree
// over collider bounds and produces deduplicated candidate pairs whose fat
// bounds overlap.
package broadphase

import (
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
)

const (
	nullNode = -1

	// aabbMargin fattens leaf bounds so small motions do not reindex.
	aabbMargin = 0.1

	// displacementScale predicts motion when enlarging moved bounds.
	displacementScale = 2.0
)

type treeNode struct {
	bounds geom.AABB

	parent int // free-list next when unallocated
	child1 int
	child2 int

	height   int // 0 for leaves, -1 for free nodes
	userData int
	moved    bool
}

func (n *treeNode) isLeaf() bool { return n.child1 == nullNode }

// Tree is a balanced dynamic AABB tree with fat leaf bounds. Proxy ids are
// stable for the lifetime of the leaf.
type Tree struct {
	root     int
	nodes    []treeNode
	freeList int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	t := &Tree{root: nullNode, freeList: nullNode}
	t.grow(16)
	return t
}

func (t *Tree) grow(n int) {
	start := len(t.nodes)
	t.nodes = append(t.nodes, make([]treeNode, n)...)
	for i := len(t.nodes) - 1; i >= start; i-- {
		t.nodes[i].parent = t.freeList
		t.nodes[i].height = -1
		t.freeList = i
	}
}

func (t *Tree) allocNode() int {
	if t.freeList == nullNode {
		t.grow(len(t.nodes))
	}
	id := t.freeList
	t.freeList = t.nodes[id].parent
	n := &t.nodes[id]
	n.parent = nullNode
	n.child1 = nullNode
	n.child2 = nullNode
	n.height = 0
	n.moved = false
	return id
}

func (t *Tree) freeNode(id int) {
	t.nodes[id].parent = t.freeList
	t.nodes[id].height = -1
	t.freeList = id
}

// CreateProxy inserts a fat leaf for bounds and returns its proxy id.
func (t *Tree) CreateProxy(bounds geom.AABB, userData int) int {
	id := t.allocNode()
	t.nodes[id].bounds = bounds.Extend(aabbMargin)
	t.nodes[id].userData = userData
	t.nodes[id].moved = true
	t.insertLeaf(id)
	return id
}

// DestroyProxy removes a leaf.
func (t *Tree) DestroyProxy(id int) {
	t.removeLeaf(id)
	t.freeNode(id)
}

// MoveProxy updates a leaf for new bounds and displacement. It reports
// whether the leaf actually had to be reinserted; untouched leaves cost
// nothing downstream.
func (t *Tree) MoveProxy(id int, bounds geom.AABB, displacement mathx.Vec2) bool {
	fat := bounds.Extend(aabbMargin)
	predicted := fat.ExtendTowards(displacement.Mul(displacementScale))

	if t.nodes[id].bounds.Contains(bounds) {
		// The fat bounds still cover the tight bounds; only reinsert when
		// the stored box has become uselessly large.
		huge := fat.Extend(4.0 * aabbMargin)
		if huge.Contains(t.nodes[id].bounds) {
			return false
		}
	}

	t.removeLeaf(id)
	t.nodes[id].bounds = predicted
	t.insertLeaf(id)
	t.nodes[id].moved = true
	return true
}

// UserData returns the user datum attached to a proxy.
func (t *Tree) UserData(id int) int { return t.nodes[id].userData }

// Bounds returns the fat bounds of a proxy.
func (t *Tree) Bounds(id int) geom.AABB { return t.nodes[id].bounds }

// Query invokes cb for every proxy whose bounds overlap aabb. Returning
// false stops the query.
func (t *Tree) Query(aabb geom.AABB, cb func(proxy int) bool) {
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == nullNode {
			continue
		}
		n := &t.nodes[id]
		if !n.bounds.Overlaps(aabb) {
			continue
		}
		if n.isLeaf() {
			if !cb(id) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

func (t *Tree) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// Descend towards the cheapest sibling by perimeter cost.
	leafBounds := t.nodes[leaf].bounds
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].bounds.Perimeter()
		combined := t.nodes[index].bounds.Union(leafBounds).Perimeter()

		cost := 2.0 * combined
		inheritance := 2.0 * (combined - area)

		costChild := func(c int) float64 {
			u := leafBounds.Union(t.nodes[c].bounds)
			if t.nodes[c].isLeaf() {
				return u.Perimeter() + inheritance
			}
			return u.Perimeter() - t.nodes[c].bounds.Perimeter() + inheritance
		}

		cost1 := costChild(child1)
		cost2 := costChild(child2)
		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index
	oldParent := t.nodes[sibling].parent
	newParent := t.allocNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].bounds = leafBounds.Union(t.nodes[sibling].bounds)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	t.refit(t.nodes[leaf].parent)
}

func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}
	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	var sibling int
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent != nullNode {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)
		t.refit(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
	}
}

// refit walks up from index rebalancing and tightening bounds.
func (t *Tree) refit(index int) {
	for index != nullNode {
		index = t.balance(index)
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		t.nodes[index].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[index].bounds = t.nodes[child1].bounds.Union(t.nodes[child2].bounds)
		index = t.nodes[index].parent
	}
}

// balance performs an AVL rotation at iA if its subtrees' heights differ by
// more than one, returning the new subtree root.
func (t *Tree) balance(iA int) int {
	a := &t.nodes[iA]
	if a.isLeaf() || a.height < 2 {
		return iA
	}
	iB := a.child1
	iC := a.child2
	b := &t.nodes[iB]
	c := &t.nodes[iC]
	bal := c.height - b.height

	// Rotate C up.
	if bal > 1 {
		iF := c.child1
		iG := c.child2
		f := &t.nodes[iF]
		g := &t.nodes[iG]

		c.child1 = iA
		c.parent = a.parent
		a.parent = iC
		if c.parent != nullNode {
			if t.nodes[c.parent].child1 == iA {
				t.nodes[c.parent].child1 = iC
			} else {
				t.nodes[c.parent].child2 = iC
			}
		} else {
			t.root = iC
		}

		if f.height > g.height {
			c.child2 = iF
			a.child2 = iG
			g.parent = iA
			a.bounds = b.bounds.Union(g.bounds)
			c.bounds = a.bounds.Union(f.bounds)
			a.height = 1 + max(b.height, g.height)
			c.height = 1 + max(a.height, f.height)
		} else {
			c.child2 = iG
			a.child2 = iF
			f.parent = iA
			a.bounds = b.bounds.Union(f.bounds)
			c.bounds = a.bounds.Union(g.bounds)
			a.height = 1 + max(b.height, f.height)
			c.height = 1 + max(a.height, g.height)
		}
		return iC
	}

	// Rotate B up.
	if bal < -1 {
		iD := b.child1
		iE := b.child2
		d := &t.nodes[iD]
		e := &t.nodes[iE]

		b.child1 = iA
		b.parent = a.parent
		a.parent = iB
		if b.parent != nullNode {
			if t.nodes[b.parent].child1 == iA {
				t.nodes[b.parent].child1 = iB
			} else {
				t.nodes[b.parent].child2 = iB
			}
		} else {
			t.root = iB
		}

		if d.height > e.height {
			b.child2 = iD
			a.child1 = iE
			e.parent = iA
			a.bounds = c.bounds.Union(e.bounds)
			b.bounds = a.bounds.Union(d.bounds)
			a.height = 1 + max(c.height, e.height)
			b.height = 1 + max(a.height, d.height)
		} else {
			b.child2 = iE
			a.child1 = iD
			d.parent = iA
			a.bounds = c.bounds.Union(d.bounds)
			b.bounds = a.bounds.Union(e.bounds)
			a.height = 1 + max(c.height, d.height)
			b.height = 1 + max(a.height, e.height)
		}
		return iB
	}

	return iA
}
