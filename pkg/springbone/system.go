package springbone

import "github.com/Faultbox/vrmkit/pkg/vrm"

// System owns every spring chain of one avatar.
type System struct {
	chains []*Chain
}

// NewSystem builds the chains of an avatar against a host scene.
func NewSystem(a vrm.Avatar, r NodeResolver) *System {
	return &System{chains: BuildChains(a, r)}
}

// BuildChains builds one chain per bone group of the avatar's secondary
// animation.
func BuildChains(a vrm.Avatar, r NodeResolver) []*Chain {
	return ChainsFrom(a.SecondaryAnimation(), r)
}

// ChainsFrom builds one chain per non-empty bone group. Nodes the resolver
// does not know are skipped: an unresolved root drops that root, an
// unresolved center simulates in world space and an unresolved collider
// owner drops its group.
func ChainsFrom(sa vrm.SecondaryAnimation, r NodeResolver) []*Chain {
	groups := make([]*ColliderGroup, len(sa.ColliderGroups))
	for i, g := range sa.ColliderGroups {
		groups[i], _ = NewColliderGroup(g, r)
	}

	var chains []*Chain
	for _, bg := range sa.BoneGroups {
		if len(bg.Bones) == 0 {
			continue
		}

		var roots []Node
		for _, b := range bg.Bones {
			if n, ok := r.Resolve(b); ok && n != nil {
				roots = append(roots, n)
			}
		}

		var center Node
		if bg.Center >= 0 {
			if n, ok := r.Resolve(bg.Center); ok && n != nil {
				center = n
			}
		}

		var colliders []*ColliderGroup
		for _, gi := range bg.ColliderGroups {
			if gi >= 0 && gi < len(groups) && groups[gi] != nil {
				colliders = append(colliders, groups[gi])
			}
		}

		chains = append(chains, NewChain(roots, center, SettingsOf(bg), colliders))
	}
	return chains
}

// SettingsOf converts the parameters of a legacy bone group.
func SettingsOf(bg vrm.BoneGroup) Settings {
	return Settings{
		Comment:      bg.Comment,
		Stiffness:    float32(bg.Stiffness),
		GravityPower: float32(bg.GravityPower),
		GravityDir:   vec3(bg.GravityDir),
		DragForce:    float32(bg.DragForce),
		HitRadius:    float32(bg.HitRadius),
	}
}

// Chains returns the chains in bone group order.
func (s *System) Chains() []*Chain { return s.chains }

// JointCount returns the number of simulated joints over all chains.
func (s *System) JointCount() int {
	n := 0
	for _, c := range s.chains {
		n += len(c.joints)
	}
	return n
}

// Update advances every chain by dt seconds, in bone group order.
func (s *System) Update(dt float32) {
	for _, c := range s.chains {
		c.Update(dt)
	}
}

// Reset restores every bone to its setup pose.
func (s *System) Reset() {
	for _, c := range s.chains {
		c.Reset()
	}
}
