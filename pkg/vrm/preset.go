package vrm

import "strings"

// BlendShapePreset is a legacy blend-shape preset tag.
type BlendShapePreset string

const (
	PresetUnknown   BlendShapePreset = "unknown"
	PresetNeutral   BlendShapePreset = "neutral"
	PresetA         BlendShapePreset = "a"
	PresetI         BlendShapePreset = "i"
	PresetU         BlendShapePreset = "u"
	PresetE         BlendShapePreset = "e"
	PresetO         BlendShapePreset = "o"
	PresetBlink     BlendShapePreset = "blink"
	PresetJoy       BlendShapePreset = "joy"
	PresetAngry     BlendShapePreset = "angry"
	PresetSorrow    BlendShapePreset = "sorrow"
	PresetFun       BlendShapePreset = "fun"
	PresetLookUp    BlendShapePreset = "lookup"
	PresetLookDown  BlendShapePreset = "lookdown"
	PresetLookLeft  BlendShapePreset = "lookleft"
	PresetLookRight BlendShapePreset = "lookright"
	PresetBlinkL    BlendShapePreset = "blink_l"
	PresetBlinkR    BlendShapePreset = "blink_r"
)

var knownPresets = map[BlendShapePreset]bool{
	PresetUnknown: true, PresetNeutral: true,
	PresetA: true, PresetI: true, PresetU: true, PresetE: true, PresetO: true,
	PresetBlink: true, PresetJoy: true, PresetAngry: true, PresetSorrow: true, PresetFun: true,
	PresetLookUp: true, PresetLookDown: true, PresetLookLeft: true, PresetLookRight: true,
	PresetBlinkL: true, PresetBlinkR: true,
}

// ParseBlendShapePreset maps a preset name to its tag, ignoring case.
// Unrecognized names map to PresetUnknown.
func ParseBlendShapePreset(name string) BlendShapePreset {
	p := BlendShapePreset(strings.ToLower(name))
	if !knownPresets[p] {
		return PresetUnknown
	}
	return p
}

// BlendShapeKey identifies a blend-shape group: a preset, or a custom
// group by name when the preset is unknown. Keys are comparable.
type BlendShapeKey struct {
	Preset BlendShapePreset
	Custom string
}

// PresetKey returns the key of a preset group.
func PresetKey(p BlendShapePreset) BlendShapeKey { return BlendShapeKey{Preset: p} }

// CustomKey returns the key of a custom group.
func CustomKey(name string) BlendShapeKey {
	return BlendShapeKey{Preset: PresetUnknown, Custom: name}
}

// IsPreset reports whether k names a preset group.
func (k BlendShapeKey) IsPreset() bool { return k.Preset != PresetUnknown }

func (k BlendShapeKey) String() string {
	if k.IsPreset() {
		return string(k.Preset)
	}
	return "custom:" + k.Custom
}

// Key returns the lookup key of g.
func (g BlendShapeGroup) Key() BlendShapeKey {
	p := ParseBlendShapePreset(g.PresetName)
	if p == PresetUnknown {
		return CustomKey(g.Name)
	}
	return PresetKey(p)
}

// Group finds the group with the given key. With duplicate keys the first
// group wins.
func (m BlendShapeMaster) Group(key BlendShapeKey) (BlendShapeGroup, bool) {
	for _, g := range m.BlendShapeGroups {
		if g.Key() == key {
			return g, true
		}
	}
	return BlendShapeGroup{}, false
}

// expressionPreset pairs a current-schema preset expression with the legacy
// group it migrates to. The table order is the legacy group order.
type expressionPreset struct {
	group  string
	preset BlendShapePreset
	key    string
}

var expressionPresets = []expressionPreset{
	{"Happy", PresetJoy, "happy"},
	{"Angry", PresetAngry, "angry"},
	{"Sad", PresetSorrow, "sad"},
	{"Relaxed", PresetFun, "relaxed"},
	{"Surprised", PresetUnknown, "surprised"},
	{"A", PresetA, "aa"},
	{"I", PresetI, "ih"},
	{"U", PresetU, "ou"},
	{"E", PresetE, "ee"},
	{"O", PresetO, "oh"},
	{"Blink", PresetBlink, "blink"},
	{"Blink_L", PresetBlinkL, "blinkLeft"},
	{"Blink_R", PresetBlinkR, "blinkRight"},
	{"LookUp", PresetLookUp, "lookUp"},
	{"LookDown", PresetLookDown, "lookDown"},
	{"LookLeft", PresetLookLeft, "lookLeft"},
	{"LookRight", PresetLookRight, "lookRight"},
	{"Neutral", PresetNeutral, "neutral"},
}

// ExpressionPresetNames lists the current-schema preset expression names in
// migration order.
func ExpressionPresetNames() []string {
	names := make([]string, len(expressionPresets))
	for i, p := range expressionPresets {
		names[i] = p.key
	}
	return names
}
