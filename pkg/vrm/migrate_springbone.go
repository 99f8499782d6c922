package vrm

import "slices"

// Joint parameter defaults applied when a current-schema joint omits them.
const (
	DefaultDragForce    = 0.5
	DefaultGravityPower = 0
	DefaultHitRadius    = 0.02
	DefaultStiffness    = 1.0
)

// DefaultGravityDir is the gravity direction of a joint that omits it.
var DefaultGravityDir = Vector3{X: 0, Y: -1, Z: 0}

// jointParams is the physics tuple shared by one legacy bone group.
type jointParams struct {
	dragForce    float64
	gravityDir   Vector3
	gravityPower float64
	hitRadius    float64
	stiffness    float64
}

func jointParamsOf(j SpringJoint) jointParams {
	p := jointParams{
		dragForce:    DefaultDragForce,
		gravityDir:   DefaultGravityDir,
		gravityPower: DefaultGravityPower,
		hitRadius:    DefaultHitRadius,
		stiffness:    DefaultStiffness,
	}
	if j.DragForce != nil {
		p.dragForce = *j.DragForce
	}
	if len(j.GravityDir) > 0 {
		p.gravityDir = vector3(j.GravityDir)
	}
	if j.GravityPower != nil {
		p.gravityPower = *j.GravityPower
	}
	if j.HitRadius != nil {
		p.hitRadius = *j.HitRadius
	}
	if j.Stiffness != nil {
		p.stiffness = *j.Stiffness
	}
	return p
}

func migrateSpringBone(sb *SpringBoneV1) SecondaryAnimation {
	out := SecondaryAnimation{
		BoneGroups:     []BoneGroup{},
		ColliderGroups: []ColliderGroup{},
	}
	if sb == nil {
		return out
	}

	// One legacy collider group per owning node, in first-seen order.
	// Capsules are approximated by a sphere at their head.
	groupOfNode := make(map[int]int)
	for _, c := range sb.Colliders {
		var col Collider
		switch {
		case c.Shape.Sphere != nil:
			col = Collider{Offset: vector3(c.Shape.Sphere.Offset), Radius: c.Shape.Sphere.Radius}
		case c.Shape.Capsule != nil:
			col = Collider{Offset: vector3(c.Shape.Capsule.Offset), Radius: c.Shape.Capsule.Radius}
		default:
			continue
		}
		gi, ok := groupOfNode[c.Node]
		if !ok {
			gi = len(out.ColliderGroups)
			groupOfNode[c.Node] = gi
			out.ColliderGroups = append(out.ColliderGroups, ColliderGroup{Node: c.Node, Colliders: []Collider{}})
		}
		out.ColliderGroups[gi].Colliders = append(out.ColliderGroups[gi].Colliders, col)
	}

	for _, spring := range sb.Springs {
		refs := referencedColliderGroups(sb, spring, out.ColliderGroups)
		center := -1
		if spring.Center != nil {
			center = *spring.Center
		}

		var (
			run    []int
			params jointParams
		)
		flush := func() {
			if len(run) == 0 {
				return
			}
			out.BoneGroups = append(out.BoneGroups, BoneGroup{
				Comment:        spring.Name,
				Stiffness:      params.stiffness,
				GravityPower:   params.gravityPower,
				GravityDir:     params.gravityDir,
				DragForce:      params.dragForce,
				Center:         center,
				HitRadius:      params.hitRadius,
				Bones:          run,
				ColliderGroups: slices.Clone(refs),
			})
		}

		// Run-length encode the joints on their parameter tuple: the legacy
		// schema has one parameter set per bone group.
		for _, j := range spring.Joints {
			p := jointParamsOf(j)
			if len(run) > 0 && p == params {
				run = append(run, j.Node)
				continue
			}
			flush()
			params = p
			run = []int{j.Node}
		}
		flush()
	}

	return out
}

// referencedColliderGroups resolves the spring's collider groups to their
// owning nodes, then to indices into the legacy collider groups.
func referencedColliderGroups(sb *SpringBoneV1, spring Spring, legacy []ColliderGroup) []int {
	nodes := make(map[int]bool)
	for _, gi := range spring.ColliderGroups {
		if gi < 0 || gi >= len(sb.ColliderGroups) {
			continue
		}
		for _, ci := range sb.ColliderGroups[gi].Colliders {
			if ci < 0 || ci >= len(sb.Colliders) {
				continue
			}
			nodes[sb.Colliders[ci].Node] = true
		}
	}

	refs := []int{}
	for i, g := range legacy {
		if nodes[g.Node] {
			refs = append(refs, i)
		}
	}
	return refs
}
