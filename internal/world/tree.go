package world

import (
	"fmt"
	"slices"

	"github.com/udisondev/gunstat/internal/model"
)

// Kind tags what a scene node stands for.
type Kind uint8

const (
	KindNode    Kind = iota // plain grouping node
	KindGun                 // owning entity of a stat context
	KindPerk                // perk instance (stat provider)
	KindStaging             // holding area for freshly instantiated nodes
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindGun:
		return "gun"
	case KindPerk:
		return "perk"
	case KindStaging:
		return "staging"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

type node struct {
	id       model.EntityID
	name     string
	kind     Kind
	parent   model.EntityID
	children []model.EntityID
}

// Tree is the instantiation hierarchy: an arena of nodes keyed by stable
// handles with parent links. Handles are never reused.
//
// Not thread-safe: owned by the update loop.
type Tree struct {
	nodes  map[model.EntityID]*node
	nextID model.EntityID

	parentHooks []func(id model.EntityID)
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[model.EntityID]*node)}
}

// OnParentChanged registers fn to run for a node and each of its descendants
// after the node was moved.
func (t *Tree) OnParentChanged(fn func(id model.EntityID)) {
	t.parentHooks = append(t.parentHooks, fn)
}

// Spawn creates a node under parent (model.InvalidEntity for a root).
// An unknown parent makes the node a root.
func (t *Tree) Spawn(name string, kind Kind, parent model.EntityID) model.EntityID {
	t.nextID++
	n := &node{id: t.nextID, name: name, kind: kind}
	t.nodes[n.id] = n
	if p, ok := t.nodes[parent]; ok {
		n.parent = parent
		p.children = append(p.children, n.id)
	}
	return n.id
}

// Destroy removes id and its whole subtree. Returns the removed handles,
// children before parents.
func (t *Tree) Destroy(id model.EntityID) []model.EntityID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var removed []model.EntityID
	for _, c := range slices.Clone(n.children) {
		removed = append(removed, t.Destroy(c)...)
	}
	t.detach(n)
	delete(t.nodes, id)
	return append(removed, id)
}

// SetParent moves id under parent (model.InvalidEntity detaches it to a
// root). Moving a node under itself or one of its descendants is refused.
func (t *Tree) SetParent(id, parent model.EntityID) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("setting parent of %d: node not found", id)
	}
	if n.parent == parent {
		return nil
	}

	var p *node
	if parent != model.InvalidEntity {
		p, ok = t.nodes[parent]
		if !ok {
			return fmt.Errorf("setting parent of %d: parent %d not found", id, parent)
		}
		for cur := parent; cur != model.InvalidEntity; cur = t.nodes[cur].parent {
			if cur == id {
				return fmt.Errorf("setting parent of %d: %d is a descendant", id, parent)
			}
		}
	}

	t.detach(n)
	if p != nil {
		n.parent = parent
		p.children = append(p.children, id)
	}

	t.notifySubtree(id)
	return nil
}

// Exists reports whether id is alive.
func (t *Tree) Exists(id model.EntityID) bool {
	_, ok := t.nodes[id]
	return ok
}

// Parent returns the parent of id; false for roots and unknown nodes.
func (t *Tree) Parent(id model.EntityID) (model.EntityID, bool) {
	n, ok := t.nodes[id]
	if !ok || n.parent == model.InvalidEntity {
		return model.InvalidEntity, false
	}
	return n.parent, true
}

// Kind returns the kind of id.
func (t *Tree) Kind(id model.EntityID) (Kind, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return 0, false
	}
	return n.kind, true
}

// Name returns the name of id.
func (t *Tree) Name(id model.EntityID) string {
	if n, ok := t.nodes[id]; ok {
		return n.name
	}
	return ""
}

// Children returns the direct children of id in insertion order.
func (t *Tree) Children(id model.EntityID) []model.EntityID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(n.children)
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// NearestAncestor walks from id (inclusive) toward the root and returns the
// first node of the given kind.
func (t *Tree) NearestAncestor(id model.EntityID, kind Kind) (model.EntityID, bool) {
	for cur := id; cur != model.InvalidEntity; {
		n, ok := t.nodes[cur]
		if !ok {
			return model.InvalidEntity, false
		}
		if n.kind == kind {
			return cur, true
		}
		cur = n.parent
	}
	return model.InvalidEntity, false
}

// ResolveOwner returns the gun a node currently belongs to.
func (t *Tree) ResolveOwner(id model.EntityID) (model.EntityID, bool) {
	return t.NearestAncestor(id, KindGun)
}

func (t *Tree) detach(n *node) {
	if n.parent == model.InvalidEntity {
		return
	}
	if p, ok := t.nodes[n.parent]; ok {
		if i := slices.Index(p.children, n.id); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
	}
	n.parent = model.InvalidEntity
}

func (t *Tree) notifySubtree(id model.EntityID) {
	if len(t.parentHooks) == 0 {
		return
	}
	for _, fn := range t.parentHooks {
		fn(id)
	}
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, c := range slices.Clone(n.children) {
		t.notifySubtree(c)
	}
}
