package cookie

import "image"

// allocNode is one node of a guillotine binary tree. Leaves are either free
// or hold exactly one allocation; inner nodes own the two halves of a split.
type allocNode struct {
	rect        image.Rectangle
	left, right *allocNode
	used        bool
}

// allocator packs rectangles into a square region by recursive guillotine
// splits. Freed space is only recovered by reset.
type allocator struct {
	root *allocNode
	size int
}

func newAllocator(size int) *allocator {
	a := &allocator{size: size}
	a.reset()
	return a
}

func (a *allocator) reset() {
	a.root = &allocNode{rect: image.Rect(0, 0, a.size, a.size)}
}

// allocate reserves a w x h rectangle and reports whether it fit.
func (a *allocator) allocate(w, h int) (image.Rectangle, bool) {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	n := a.root.insert(w, h)
	if n == nil {
		return image.Rectangle{}, false
	}
	return n.rect, true
}

func (n *allocNode) insert(w, h int) *allocNode {
	if n.left != nil {
		if got := n.left.insert(w, h); got != nil {
			return got
		}
		return n.right.insert(w, h)
	}

	if n.used {
		return nil
	}
	rw, rh := n.rect.Dx(), n.rect.Dy()
	if w > rw || h > rh {
		return nil
	}
	if w == rw && h == rh {
		n.used = true
		return n
	}

	// Split along the axis with more leftover space so the larger free
	// remainder stays in one piece.
	r := n.rect
	if rw-w > rh-h {
		n.left = &allocNode{rect: image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y)}
		n.right = &allocNode{rect: image.Rect(r.Min.X+w, r.Min.Y, r.Max.X, r.Max.Y)}
	} else {
		n.left = &allocNode{rect: image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+h)}
		n.right = &allocNode{rect: image.Rect(r.Min.X, r.Min.Y+h, r.Max.X, r.Max.Y)}
	}
	return n.left.insert(w, h)
}
