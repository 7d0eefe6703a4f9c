// Package avlseq implements the order-statistic AVL tree (component D):
// a tree keyed by monotonically increasing sequence number where every
// node caches its subtree size, giving O(log n) rank-of-key and
// delete-by-key while still supporting LRU (min-by-sequence) extraction.
package avlseq

// Node is one entry: Seq is the ordering key, Payload carries the caller's
// associated value (a key_hash in the stack-distance substrate).
type Node struct {
	Seq     int64
	Payload uint64

	left, right *Node
	height      int
	size        int // 1 + size(left) + size(right)
}

// Tree is an order-statistic AVL. Zero value is an empty tree.
type Tree struct {
	root *Node
	n    int
}

// Len returns the number of live nodes.
func (t *Tree) Len() int { return t.n }

func height(n *Node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func size(n *Node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func balanceFactor(n *Node) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func update(n *Node) {
	n.height = 1 + max(height(n.left), height(n.right))
	n.size = 1 + size(n.left) + size(n.right)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func rotateRight(y *Node) *Node {
	x := y.left
	t2 := x.right

	x.right = y
	y.left = t2

	update(y)
	update(x)
	return x
}

func rotateLeft(x *Node) *Node {
	y := x.right
	t2 := y.left

	y.left = x
	x.right = t2

	update(x)
	update(y)
	return y
}

func rebalance(n *Node) *Node {
	update(n)
	bf := balanceFactor(n)

	if bf > 1 {
		if balanceFactor(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	}
	if bf < -1 {
		if balanceFactor(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}

// Insert adds a new node keyed by seq. seq MUST NOT already be present;
// the stack-distance substrate guarantees this by minting a fresh sequence
// number on every insert.
func (t *Tree) Insert(seq int64, payload uint64) {
	t.root = insert(t.root, seq, payload)
	t.n++
}

func insert(n *Node, seq int64, payload uint64) *Node {
	if n == nil {
		return &Node{Seq: seq, Payload: payload, height: 1, size: 1}
	}
	if seq < n.Seq {
		n.left = insert(n.left, seq, payload)
	} else {
		n.right = insert(n.right, seq, payload)
	}
	return rebalance(n)
}

// DeleteBySeq removes the node with the given sequence number. Returns
// false if no such node exists (a programmer error in every caller in
// this repo — every delete is preceded by a lookup that produced seq).
func (t *Tree) DeleteBySeq(seq int64) bool {
	var removed bool
	t.root, removed = remove(t.root, seq)
	if removed {
		t.n--
	}
	return removed
}

func remove(n *Node, seq int64) (*Node, bool) {
	if n == nil {
		return nil, false
	}

	var removed bool
	switch {
	case seq < n.Seq:
		n.left, removed = remove(n.left, seq)
	case seq > n.Seq:
		n.right, removed = remove(n.right, seq)
	default:
		removed = true
		if n.left == nil {
			return n.right, true
		}
		if n.right == nil {
			return n.left, true
		}
		succ := leftmost(n.right)
		n.Seq, n.Payload = succ.Seq, succ.Payload
		n.right, _ = remove(n.right, succ.Seq)
	}
	if !removed {
		return n, false
	}
	return rebalance(n), true
}

func leftmost(n *Node) *Node {
	for n.left != nil {
		n = n.left
	}
	return n
}

// Min returns the node with the smallest sequence number (the LRU victim),
// or nil if the tree is empty.
func (t *Tree) Min() *Node {
	if t.root == nil {
		return nil
	}
	return leftmost(t.root)
}

// CountGreaterThan returns the number of live nodes with Seq > seq. This is
// the stack-distance primitive: a hit's distance is the count of distinct
// keys touched since that key's previous access.
func (t *Tree) CountGreaterThan(seq int64) int {
	return countGreater(t.root, seq)
}

func countGreater(n *Node, seq int64) int {
	if n == nil {
		return 0
	}
	if seq < n.Seq {
		// n and everything in n.right are > seq, plus whatever qualifies on the left.
		return 1 + size(n.right) + countGreater(n.left, seq)
	}
	// n.Seq <= seq: n itself doesn't qualify, nothing on the left does either.
	return countGreater(n.right, seq)
}
