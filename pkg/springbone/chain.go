package springbone

import "github.com/Faultbox/vrmkit/pkg/math"

// LeafTailLength is the length of the virtual tail given to a bone without
// children.
const LeafTailLength = 0.07

// Settings are the physics parameters shared by every joint of a chain.
type Settings struct {
	Comment      string
	Stiffness    float32
	GravityPower float32
	GravityDir   math.Vec3
	DragForce    float32
	HitRadius    float32
}

// DefaultSettings returns the parameters of a chain that specifies none.
func DefaultSettings() Settings {
	return Settings{
		Stiffness:  1,
		GravityDir: math.Vec3{Y: -1},
		DragForce:  0.4,
		HitRadius:  0.02,
	}
}

// joint is the Verlet state of one bone. Tails are stored relative to the
// chain's center node, or in world space without one.
type joint struct {
	node          Node
	length        float32
	currentTail   math.Vec3
	prevTail      math.Vec3
	localRotation math.Quat
	boneAxis      math.Vec3
	radius        float32
}

type rotationSnapshot struct {
	node     Node
	rotation math.Quat
}

// Chain simulates the bones below a set of root bones. A chain is not safe
// for concurrent use; call Update once per frame from one goroutine.
type Chain struct {
	Settings

	roots     []Node
	center    Node
	colliders []*ColliderGroup

	joints  []joint
	initial []rotationSnapshot
	spheres []worldSphere
}

// NewChain builds a chain and runs its setup. center may be nil.
func NewChain(roots []Node, center Node, settings Settings, colliders []*ColliderGroup) *Chain {
	c := &Chain{
		Settings:  settings,
		roots:     roots,
		center:    center,
		colliders: colliders,
	}
	c.Setup()
	return c
}

// Roots returns the configured root bones.
func (c *Chain) Roots() []Node { return c.roots }

// Center returns the node tails are stored relative to, or nil.
func (c *Chain) Center() Node { return c.center }

// Setup restores the rotations captured by the previous setup, captures the
// current pose of every bone below the roots and rebuilds the joints from
// it.
func (c *Chain) Setup() {
	for _, s := range c.initial {
		s.node.SetLocalRotation(s.rotation)
	}
	c.initial = c.initial[:0]
	c.joints = c.joints[:0]

	for _, root := range c.roots {
		walk(root, func(n Node) {
			c.initial = append(c.initial, rotationSnapshot{node: n, rotation: n.LocalRotation()})
		})
		c.setupRecursive(root)
	}
}

// Reset puts every bone back into its setup pose and restarts the
// simulation from rest.
func (c *Chain) Reset() { c.Setup() }

// Clear drops the joint state. The next Update sets the chain up again.
func (c *Chain) Clear() { c.joints = nil }

func walk(n Node, fn func(Node)) {
	fn(n)
	for _, child := range n.Children() {
		walk(child, fn)
	}
}

func (c *Chain) setupRecursive(n Node) {
	children := n.Children()
	if len(children) == 0 {
		// Extend a virtual tail along the parent-to-bone direction.
		if parent := n.Parent(); parent != nil {
			pos := worldPosition(n)
			delta := pos.Sub(worldPosition(parent))
			tail := pos.Add(delta.Normalize().Scale(LeafTailLength))
			c.joints = append(c.joints, c.newJoint(n, n.WorldTransform().InverseTransformPoint(tail)))
		}
	} else {
		first := children[0]
		c.joints = append(c.joints, c.newJoint(n, first.LocalPosition().Mul(first.LossyScale())))
	}

	for _, child := range children {
		c.setupRecursive(child)
	}
}

func (c *Chain) newJoint(n Node, localTail math.Vec3) joint {
	tail := c.toStorage(n.WorldTransform().TransformPoint(localTail))
	return joint{
		node:          n,
		length:        localTail.Length(),
		currentTail:   tail,
		prevTail:      tail,
		localRotation: n.LocalRotation(),
		boneAxis:      localTail.Normalize(),
		radius:        c.HitRadius,
	}
}

func (c *Chain) toStorage(world math.Vec3) math.Vec3 {
	if c.center == nil {
		return world
	}
	return c.center.WorldTransform().InverseTransformPoint(world)
}

func (c *Chain) toWorld(stored math.Vec3) math.Vec3 {
	if c.center == nil {
		return stored
	}
	return c.center.WorldTransform().TransformPoint(stored)
}

// Update advances the simulation by dt seconds and writes the new bone
// rotations to the host nodes. Joints are visited parents first, since each
// child reads its parent's freshly written rotation.
func (c *Chain) Update(dt float32) {
	if len(c.joints) == 0 {
		if len(c.roots) == 0 {
			return
		}
		c.Setup()
	}

	c.spheres = c.spheres[:0]
	for _, g := range c.colliders {
		c.spheres = g.appendWorld(c.spheres)
	}

	stiffness := c.Stiffness * dt
	external := c.GravityDir.Scale(c.GravityPower * dt)

	for i := range c.joints {
		j := &c.joints[i]
		j.radius = c.HitRadius
		c.updateJoint(j, stiffness, external)
	}
}

func (c *Chain) updateJoint(j *joint, stiffness float32, external math.Vec3) {
	current := c.toWorld(j.currentTail)
	prev := c.toWorld(j.prevTail)
	head := worldPosition(j.node)
	rest := parentRotation(j.node).Mul(j.localRotation)

	next := current.
		Add(current.Sub(prev).Scale(1 - c.DragForce)).
		Add(rest.Rotate(j.boneAxis).Scale(stiffness)).
		Add(external)

	// Keep the bone length.
	next = head.Add(next.Sub(head).Normalize().Scale(j.length))
	next = c.collide(j, head, next)

	j.prevTail = c.toStorage(current)
	j.currentTail = c.toStorage(next)

	turn := math.QuatFromTo(rest.Rotate(j.boneAxis), next.Sub(head))
	setWorldRotation(j.node, turn.Mul(rest))
}

// collide pushes the tail out of every sphere it touches, then back onto the
// bone-length sphere around head.
func (c *Chain) collide(j *joint, head, tail math.Vec3) math.Vec3 {
	for _, s := range c.spheres {
		r := j.radius + s.radius
		if tail.Sub(s.center).LengthSquared() <= r*r {
			normal := tail.Sub(s.center).Normalize()
			surface := s.center.Add(normal.Scale(r))
			tail = head.Add(surface.Sub(head).Normalize().Scale(j.length))
		}
	}
	return tail
}

// JointState is a read-only view of one joint, with tails in world space.
type JointState struct {
	Node        Node
	Length      float32
	Radius      float32
	CurrentTail math.Vec3
	PrevTail    math.Vec3
}

// Joints returns the joints in update order.
func (c *Chain) Joints() []JointState {
	out := make([]JointState, len(c.joints))
	for i, j := range c.joints {
		out[i] = JointState{
			Node:        j.node,
			Length:      j.length,
			Radius:      j.radius,
			CurrentTail: c.toWorld(j.currentTail),
			PrevTail:    c.toWorld(j.prevTail),
		}
	}
	return out
}

// Colliders returns the collider groups the chain tests against.
func (c *Chain) Colliders() []*ColliderGroup { return c.colliders }
