// Package scene is a minimal host scene graph for avatar documents. It keeps
// every node in a flat arena indexed by its document index and lets the
// spring-bone solver read and rotate bones through springbone.Node.
package scene

import (
	"fmt"

	"github.com/Faultbox/vrmkit/pkg/math"
	"github.com/Faultbox/vrmkit/pkg/springbone"
	"github.com/Faultbox/vrmkit/pkg/vrm"
)

// nodeData is the arena record of one document node.
type nodeData struct {
	name        string
	parent      int // -1 for roots
	children    []int
	translation math.Vec3
	rotation    math.Quat
	scale       math.Vec3
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// Scene holds the node hierarchy of a document.
type Scene struct {
	nodes []nodeData
	roots []int
}

// New builds a scene from the document node list. A node listed as the child
// of more than one parent keeps the first; links that would close a cycle or
// point outside the node list are rejected.
func New(doc *vrm.Document) (*Scene, error) {
	s := &Scene{nodes: make([]nodeData, len(doc.Nodes))}
	for i, n := range doc.Nodes {
		d := &s.nodes[i]
		d.parent = -1
		d.rotation = math.QuatIdentity()
		d.scale = math.Vec3{X: 1, Y: 1, Z: 1}
		if n == nil {
			continue
		}
		d.name = n.Name
		// A zero array is an absent member.
		if n.Matrix != identityMatrix && n.Matrix != ([16]float64{}) {
			d.translation, d.rotation, d.scale = math.Mat4FromSlice(n.Matrix[:]).Decompose()
			continue
		}
		d.translation = math.Vec3FromSlice(n.Translation[:], math.Vec3{})
		if n.Rotation != ([4]float64{}) {
			d.rotation = math.QuatFromSlice(n.Rotation[:]).Normalize()
		}
		if n.Scale != ([3]float64{}) {
			d.scale = math.Vec3FromSlice(n.Scale[:], d.scale)
		}
	}

	for i, n := range doc.Nodes {
		if n == nil {
			continue
		}
		for _, c := range n.Children {
			if c < 0 || c >= len(s.nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			if s.nodes[c].parent >= 0 || s.isAncestor(c, i) {
				continue
			}
			s.nodes[c].parent = i
			s.nodes[i].children = append(s.nodes[i].children, c)
		}
	}

	for i := range s.nodes {
		if s.nodes[i].parent < 0 {
			s.roots = append(s.roots, i)
		}
	}
	return s, nil
}

// isAncestor reports whether a is b or one of b's ancestors.
func (s *Scene) isAncestor(a, b int) bool {
	for i := b; i >= 0; i = s.nodes[i].parent {
		if i == a {
			return true
		}
	}
	return false
}

// Len returns the number of nodes.
func (s *Scene) Len() int { return len(s.nodes) }

// Roots returns the nodes without a parent, in document order.
func (s *Scene) Roots() []*Node {
	out := make([]*Node, len(s.roots))
	for i, r := range s.roots {
		out[i] = &Node{scene: s, index: r}
	}
	return out
}

// Node returns the node at index i, or nil when out of range.
func (s *Scene) Node(i int) *Node {
	if i < 0 || i >= len(s.nodes) {
		return nil
	}
	return &Node{scene: s, index: i}
}

// FindByName returns the first node with the given name.
func (s *Scene) FindByName(name string) (*Node, bool) {
	for i := range s.nodes {
		if s.nodes[i].name == name {
			return &Node{scene: s, index: i}, true
		}
	}
	return nil, false
}

// Resolve implements springbone.NodeResolver.
func (s *Scene) Resolve(index int) (springbone.Node, bool) {
	n := s.Node(index)
	if n == nil {
		return nil, false
	}
	return n, true
}

// Node is a handle to one arena entry. Handles are cheap and compare equal
// by index.
type Node struct {
	scene *Scene
	index int
}

func (n *Node) data() *nodeData { return &n.scene.nodes[n.index] }

// Index returns the document node index.
func (n *Node) Index() int { return n.index }

// Name returns the document node name.
func (n *Node) Name() string { return n.data().name }

func (n *Node) LocalPosition() math.Vec3 { return n.data().translation }

func (n *Node) LocalRotation() math.Quat { return n.data().rotation }

func (n *Node) SetLocalRotation(q math.Quat) { n.data().rotation = q }

// LocalScale returns the node's own scale.
func (n *Node) LocalScale() math.Vec3 { return n.data().scale }

// Parent returns nil for a root node.
func (n *Node) Parent() springbone.Node {
	p := n.data().parent
	if p < 0 {
		return nil
	}
	return &Node{scene: n.scene, index: p}
}

func (n *Node) Children() []springbone.Node {
	children := n.data().children
	out := make([]springbone.Node, len(children))
	for i, c := range children {
		out[i] = &Node{scene: n.scene, index: c}
	}
	return out
}

// LocalTransform returns the node's transform relative to its parent.
func (n *Node) LocalTransform() springbone.Transform {
	d := n.data()
	return springbone.Transform{Position: d.translation, Rotation: d.rotation, Scale: d.scale}
}

// WorldTransform accumulates local transforms from the root down.
func (n *Node) WorldTransform() springbone.Transform {
	d := n.data()
	if d.parent < 0 {
		return n.LocalTransform()
	}
	parent := &Node{scene: n.scene, index: d.parent}
	return parent.WorldTransform().Compose(n.LocalTransform())
}

// LocalMatrix returns T * R * S.
func (n *Node) LocalMatrix() math.Mat4 {
	d := n.data()
	return math.FromTRS(d.translation, d.rotation, d.scale)
}

// WorldMatrix returns parent world matrix * local matrix.
func (n *Node) WorldMatrix() math.Mat4 {
	d := n.data()
	if d.parent < 0 {
		return n.LocalMatrix()
	}
	parent := &Node{scene: n.scene, index: d.parent}
	return parent.WorldMatrix().Mul(n.LocalMatrix())
}

func (n *Node) LossyScale() math.Vec3 { return n.WorldTransform().Scale }

// Pose is a snapshot of every node's local rotation.
type Pose []math.Quat

// Pose captures the current local rotations.
func (s *Scene) Pose() Pose {
	p := make(Pose, len(s.nodes))
	for i := range s.nodes {
		p[i] = s.nodes[i].rotation
	}
	return p
}

// SetPose restores rotations captured by Pose. Extra or missing entries are
// ignored.
func (s *Scene) SetPose(p Pose) {
	for i := range min(len(p), len(s.nodes)) {
		s.nodes[i].rotation = p[i]
	}
}
