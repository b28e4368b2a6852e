package cache

// lruNode is one entry's position in the recency list. It carries the
// entry's signature so the oldest entry can be dropped from the map, and its
// size so the list can keep a running byte total.
type lruNode struct {
	sig  string
	size int64
	prev *lruNode
	next *lruNode
}

// lruList orders entries from most recently used (front) to least recently
// used (back) and tracks their total size. Not thread-safe.
type lruList struct {
	front *lruNode
	back  *lruNode
	len   int
	bytes int64
}

// Len returns the number of nodes.
func (l *lruList) Len() int { return l.len }

// Bytes returns the total size of all nodes.
func (l *lruList) Bytes() int64 { return l.bytes }

// PushFront inserts a new most recently used node.
func (l *lruList) PushFront(sig string, size int64) *lruNode {
	n := &lruNode{sig: sig, size: size}
	l.link(n)
	l.len++
	l.bytes += size
	return n
}

// Touch marks n as most recently used.
func (l *lruList) Touch(n *lruNode) {
	if n == nil || n == l.front {
		return
	}
	l.unlink(n)
	l.link(n)
}

// Remove drops n from the list.
func (l *lruList) Remove(n *lruNode) {
	if n == nil {
		return
	}
	l.unlink(n)
	l.len--
	l.bytes -= n.size
}

// Back returns the least recently used node, or nil.
func (l *lruList) Back() *lruNode { return l.back }

// Reset empties the list.
func (l *lruList) Reset() {
	*l = lruList{}
}

func (l *lruList) link(n *lruNode) {
	n.prev = nil
	n.next = l.front
	if l.front != nil {
		l.front.prev = n
	}
	l.front = n
	if l.back == nil {
		l.back = n
	}
}

func (l *lruList) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.front = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.back = n.prev
	}
	n.prev, n.next = nil, nil
}
