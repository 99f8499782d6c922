package springbone

import (
	"github.com/Faultbox/vrmkit/pkg/math"
	"github.com/Faultbox/vrmkit/pkg/vrm"
)

// Sphere is a collider in its owner node's local space.
type Sphere struct {
	Offset math.Vec3
	Radius float32
}

// ColliderGroup is a set of spheres attached to one node.
type ColliderGroup struct {
	Node    Node
	Spheres []Sphere
}

// NewColliderGroup resolves a legacy collider group. It reports false when
// the owner node cannot be resolved.
func NewColliderGroup(g vrm.ColliderGroup, r NodeResolver) (*ColliderGroup, bool) {
	node, ok := r.Resolve(g.Node)
	if !ok || node == nil {
		return nil, false
	}
	out := &ColliderGroup{Node: node, Spheres: make([]Sphere, 0, len(g.Colliders))}
	for _, c := range g.Colliders {
		out.Spheres = append(out.Spheres, Sphere{
			Offset: vec3(c.Offset),
			Radius: float32(c.Radius),
		})
	}
	return out, true
}

// worldSphere is a collider placed in world space for one update.
type worldSphere struct {
	center math.Vec3
	radius float32
}

// appendWorld places every sphere of g in world space.
func (g *ColliderGroup) appendWorld(dst []worldSphere) []worldSphere {
	t := g.Node.WorldTransform()
	for _, s := range g.Spheres {
		dst = append(dst, worldSphere{center: t.TransformPoint(s.Offset), radius: s.Radius})
	}
	return dst
}

func vec3(v vrm.Vector3) math.Vec3 {
	return math.Vec3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
