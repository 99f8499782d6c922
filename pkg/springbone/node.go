// Package springbone simulates secondary motion of dangling bones (hair,
// skirts, accessories) with a Verlet integrator and sphere colliders.
//
// The solver never owns scene nodes. It reads and writes them through the
// Node interface, so any scene graph can host it.
package springbone

import "github.com/Faultbox/vrmkit/pkg/math"

// Node is the scene-graph capability the solver needs from a host bone.
type Node interface {
	LocalRotation() math.Quat
	SetLocalRotation(q math.Quat)
	LocalPosition() math.Vec3
	WorldTransform() Transform
	// Parent returns nil for a root node.
	Parent() Node
	Children() []Node
	// LossyScale is the accumulated world scale, ignoring shear.
	LossyScale() math.Vec3
}

// NodeResolver maps document node indices to host nodes.
type NodeResolver interface {
	Resolve(index int) (Node, bool)
}

// ResolverFunc adapts a function to NodeResolver.
type ResolverFunc func(index int) (Node, bool)

func (f ResolverFunc) Resolve(index int) (Node, bool) { return f(index) }

// Transform is a decomposed affine transform: scale, then rotation, then
// translation.
type Transform struct {
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
}

// IdentityTransform returns the transform that changes nothing.
func IdentityTransform() Transform {
	return Transform{Rotation: math.QuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}}
}

// TransformPoint maps p from local space into the space t is expressed in.
func (t Transform) TransformPoint(p math.Vec3) math.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(p.Mul(t.Scale)))
}

// InverseTransformPoint maps p back into local space.
func (t Transform) InverseTransformPoint(p math.Vec3) math.Vec3 {
	return t.Rotation.Inverse().Rotate(p.Sub(t.Position)).Div(t.Scale)
}

// Compose returns the world transform of a child whose local transform is
// local when its parent's world transform is t.
func (t Transform) Compose(local Transform) Transform {
	return Transform{
		Position: t.TransformPoint(local.Position),
		Rotation: t.Rotation.Mul(local.Rotation).Normalize(),
		Scale:    t.Scale.Mul(local.Scale),
	}
}

func worldPosition(n Node) math.Vec3 { return n.WorldTransform().Position }

func parentRotation(n Node) math.Quat {
	if p := n.Parent(); p != nil {
		return p.WorldTransform().Rotation
	}
	return math.QuatIdentity()
}

// setWorldRotation stores q as n's world rotation by rewriting its local
// rotation relative to the parent.
func setWorldRotation(n Node, q math.Quat) {
	n.SetLocalRotation(parentRotation(n).Inverse().Mul(q).Normalize())
}
