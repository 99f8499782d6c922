package vrm

// HumanBoneNames lists every humanoid bone slot of the current schema, in
// schema order. Migration walks this list, so it fixes the order of the
// legacy humanBones array.
var HumanBoneNames = []string{
	// torso
	"hips", "spine", "chest", "upperChest", "neck",
	// head
	"head", "leftEye", "rightEye", "jaw",
	// legs
	"leftUpperLeg", "leftLowerLeg", "leftFoot", "leftToes",
	"rightUpperLeg", "rightLowerLeg", "rightFoot", "rightToes",
	// arms
	"leftShoulder", "leftUpperArm", "leftLowerArm", "leftHand",
	"rightShoulder", "rightUpperArm", "rightLowerArm", "rightHand",
	// left fingers
	"leftThumbMetacarpal", "leftThumbProximal", "leftThumbDistal",
	"leftIndexProximal", "leftIndexIntermediate", "leftIndexDistal",
	"leftMiddleProximal", "leftMiddleIntermediate", "leftMiddleDistal",
	"leftRingProximal", "leftRingIntermediate", "leftRingDistal",
	"leftLittleProximal", "leftLittleIntermediate", "leftLittleDistal",
	// right fingers
	"rightThumbMetacarpal", "rightThumbProximal", "rightThumbDistal",
	"rightIndexProximal", "rightIndexIntermediate", "rightIndexDistal",
	"rightMiddleProximal", "rightMiddleIntermediate", "rightMiddleDistal",
	"rightRingProximal", "rightRingIntermediate", "rightRingDistal",
	"rightLittleProximal", "rightLittleIntermediate", "rightLittleDistal",
}

// Legacy humanoid defaults emitted by migration; the current schema has no
// equivalent values.
const (
	DefaultArmStretch        = 0.05
	DefaultFeetSpacing       = 0
	DefaultHasTranslationDoF = false
	DefaultLegStretch        = 0.05
	DefaultTwist             = 0.5
)

// NodeFor returns the node mapped to a bone slot. With duplicate entries the
// first one wins.
func (h Humanoid) NodeFor(bone string) (int, bool) {
	for _, b := range h.HumanBones {
		if b.Bone == bone {
			return b.Node, true
		}
	}
	return 0, false
}

// BoneNodes returns the bone slot to node mapping.
func (h Humanoid) BoneNodes() map[string]int {
	m := make(map[string]int, len(h.HumanBones))
	for i := len(h.HumanBones) - 1; i >= 0; i-- {
		m[h.HumanBones[i].Bone] = h.HumanBones[i].Node
	}
	return m
}
