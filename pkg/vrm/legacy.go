package vrm

// ExtensionLegacy is the document extension key of the legacy schema.
const ExtensionLegacy = "VRM"

// VRM0 is the legacy (0.x) avatar description. It is also the shape every
// current-schema avatar is migrated to.
type VRM0 struct {
	ExporterVersion    string             `json:"exporterVersion,omitempty"`
	SpecVersion        string             `json:"specVersion,omitempty"`
	Version            string             `json:"version,omitempty"`
	Meta               Meta               `json:"meta"`
	Humanoid           Humanoid           `json:"humanoid"`
	FirstPerson        FirstPerson        `json:"firstPerson"`
	BlendShapeMaster   BlendShapeMaster   `json:"blendShapeMaster"`
	SecondaryAnimation SecondaryAnimation `json:"secondaryAnimation"`
	MaterialProperties []MaterialProperty `json:"materialProperties"`
}

// Meta is the legacy avatar metadata. The "Ussage" spelling is the schema's.
type Meta struct {
	Title                string `json:"title,omitempty"`
	Version              string `json:"version,omitempty"`
	Author               string `json:"author,omitempty"`
	ContactInformation   string `json:"contactInformation,omitempty"`
	Reference            string `json:"reference,omitempty"`
	Texture              *int   `json:"texture,omitempty"`
	AllowedUserName      string `json:"allowedUserName,omitempty"`
	ViolentUssageName    string `json:"violentUssageName,omitempty"`
	SexualUssageName     string `json:"sexualUssageName,omitempty"`
	CommercialUssageName string `json:"commercialUssageName,omitempty"`
	OtherPermissionURL   string `json:"otherPermissionUrl,omitempty"`
	LicenseName          string `json:"licenseName,omitempty"`
	OtherLicenseURL      string `json:"otherLicenseUrl,omitempty"`
}

// Usage permission values.
const (
	UsageAllow    = "Allow"
	UsageDisallow = "Disallow"
)

type Humanoid struct {
	HumanBones        []HumanBone `json:"humanBones"`
	ArmStretch        float64     `json:"armStretch"`
	LegStretch        float64     `json:"legStretch"`
	UpperArmTwist     float64     `json:"upperArmTwist"`
	LowerArmTwist     float64     `json:"lowerArmTwist"`
	UpperLegTwist     float64     `json:"upperLegTwist"`
	LowerLegTwist     float64     `json:"lowerLegTwist"`
	FeetSpacing       float64     `json:"feetSpacing"`
	HasTranslationDoF bool        `json:"hasTranslationDoF"`
}

type HumanBone struct {
	Bone             string `json:"bone"`
	Node             int    `json:"node"`
	UseDefaultValues bool   `json:"useDefaultValues"`
}

type BlendShapeMaster struct {
	BlendShapeGroups []BlendShapeGroup `json:"blendShapeGroups"`
}

type BlendShapeGroup struct {
	Name           string              `json:"name"`
	PresetName     string              `json:"presetName"`
	Binds          []BlendShapeBind    `json:"binds"`
	MaterialValues []MaterialValueBind `json:"materialValues"`
	IsBinary       bool                `json:"isBinary"`
}

// BlendShapeBind drives morph target Index of Mesh. Weight is in 0..100.
type BlendShapeBind struct {
	Mesh   int     `json:"mesh"`
	Index  int     `json:"index"`
	Weight float64 `json:"weight"`
}

type MaterialValueBind struct {
	MaterialName string    `json:"materialName"`
	PropertyName string    `json:"propertyName"`
	TargetValue  []float64 `json:"targetValue"`
}

// LookAtType is the legacy look-at mechanism.
type LookAtType string

const (
	LookAtNone       LookAtType = "None"
	LookAtBone       LookAtType = "Bone"
	LookAtBlendShape LookAtType = "BlendShape"
)

type FirstPerson struct {
	FirstPersonBone       int              `json:"firstPersonBone"`
	FirstPersonBoneOffset Vector3          `json:"firstPersonBoneOffset"`
	MeshAnnotations       []MeshAnnotation `json:"meshAnnotations"`
	LookAtTypeName        LookAtType       `json:"lookAtTypeName"`
	LookAtHorizontalInner *DegreeMap       `json:"lookAtHorizontalInner,omitempty"`
	LookAtHorizontalOuter *DegreeMap       `json:"lookAtHorizontalOuter,omitempty"`
	LookAtVerticalDown    *DegreeMap       `json:"lookAtVerticalDown,omitempty"`
	LookAtVerticalUp      *DegreeMap       `json:"lookAtVerticalUp,omitempty"`
}

type MeshAnnotation struct {
	Mesh            int    `json:"mesh"`
	FirstPersonFlag string `json:"firstPersonFlag"`
}

// DegreeMap maps a look-at angle (XRange degrees) onto a bone rotation or
// blend-shape weight (YRange).
type DegreeMap struct {
	Curve  []float64 `json:"curve,omitempty"`
	XRange float64   `json:"xRange"`
	YRange float64   `json:"yRange"`
}

type SecondaryAnimation struct {
	BoneGroups     []BoneGroup     `json:"boneGroups"`
	ColliderGroups []ColliderGroup `json:"colliderGroups"`
}

// BoneGroup is one spring-bone chain. Center is -1 when the chain simulates
// in world space. The "stiffiness" spelling is the schema's.
type BoneGroup struct {
	Comment        string  `json:"comment,omitempty"`
	Stiffness      float64 `json:"stiffiness"`
	GravityPower   float64 `json:"gravityPower"`
	GravityDir     Vector3 `json:"gravityDir"`
	DragForce      float64 `json:"dragForce"`
	Center         int     `json:"center"`
	HitRadius      float64 `json:"hitRadius"`
	Bones          []int   `json:"bones"`
	ColliderGroups []int   `json:"colliderGroups"`
}

type ColliderGroup struct {
	Node      int        `json:"node"`
	Colliders []Collider `json:"colliders"`
}

type Collider struct {
	Offset Vector3 `json:"offset"`
	Radius float64 `json:"radius"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// vector3 reads up to three components; missing ones are zero.
func vector3(s []float64) Vector3 {
	var v Vector3
	if len(s) > 0 {
		v.X = s[0]
	}
	if len(s) > 1 {
		v.Y = s[1]
	}
	if len(s) > 2 {
		v.Z = s[2]
	}
	return v
}

// Shader names of legacy material properties.
const (
	ShaderMToon    = "VRM/MToon"
	ShaderUnlit    = "VRM/UnlitTexture"
	ShaderStandard = "Standard"
)

// MaterialProperty is the legacy per-material shader description.
type MaterialProperty struct {
	Name              string               `json:"name"`
	Shader            string               `json:"shader"`
	RenderQueue       int                  `json:"renderQueue"`
	FloatProperties   map[string]float64   `json:"floatProperties"`
	VectorProperties  map[string][]float64 `json:"vectorProperties"`
	TextureProperties map[string]int       `json:"textureProperties"`
	KeywordMap        map[string]bool      `json:"keywordMap"`
	TagMap            map[string]string    `json:"tagMap"`
}

// MaterialPropertyNameMap indexes the material properties by name. Later
// entries replace earlier ones with the same name.
func (v *VRM0) MaterialPropertyNameMap() map[string]MaterialProperty {
	m := make(map[string]MaterialProperty, len(v.MaterialProperties))
	for _, p := range v.MaterialProperties {
		m[p.Name] = p
	}
	return m
}

// keyRule names a key an object must carry. Nested rules apply to the
// member's object, or to each element when the member is an array.
type keyRule struct {
	key      string
	optional bool
	nested   []keyRule
}

func requiredKey(key string, nested ...keyRule) keyRule {
	return keyRule{key: key, nested: nested}
}

func optionalKey(key string, nested ...keyRule) keyRule {
	return keyRule{key: key, optional: true, nested: nested}
}

var vector3Keys = []keyRule{requiredKey("x"), requiredKey("y"), requiredKey("z")}

// legacySchema lists every non-optional key of the legacy extension.
var legacySchema = []keyRule{
	requiredKey("meta"),
	requiredKey("materialProperties",
		requiredKey("name"),
		requiredKey("shader"),
		requiredKey("renderQueue"),
		requiredKey("floatProperties"),
		requiredKey("vectorProperties"),
		requiredKey("textureProperties"),
		requiredKey("keywordMap"),
		requiredKey("tagMap"),
	),
	requiredKey("humanoid",
		requiredKey("humanBones", requiredKey("bone"), requiredKey("node"), requiredKey("useDefaultValues")),
		requiredKey("armStretch"),
		requiredKey("legStretch"),
		requiredKey("upperArmTwist"),
		requiredKey("lowerArmTwist"),
		requiredKey("upperLegTwist"),
		requiredKey("lowerLegTwist"),
		requiredKey("feetSpacing"),
		requiredKey("hasTranslationDoF"),
	),
	requiredKey("blendShapeMaster",
		requiredKey("blendShapeGroups",
			requiredKey("name"),
			requiredKey("presetName"),
			optionalKey("binds", requiredKey("mesh"), requiredKey("index"), requiredKey("weight")),
			optionalKey("materialValues", requiredKey("materialName"), requiredKey("propertyName"), requiredKey("targetValue")),
		),
	),
	requiredKey("firstPerson",
		requiredKey("firstPersonBone"),
		requiredKey("firstPersonBoneOffset", vector3Keys...),
		requiredKey("meshAnnotations", requiredKey("mesh"), requiredKey("firstPersonFlag")),
		requiredKey("lookAtTypeName"),
	),
	requiredKey("secondaryAnimation",
		requiredKey("boneGroups",
			requiredKey("stiffiness"),
			requiredKey("gravityPower"),
			requiredKey("gravityDir", vector3Keys...),
			requiredKey("dragForce"),
			requiredKey("center"),
			requiredKey("hitRadius"),
			requiredKey("bones"),
			requiredKey("colliderGroups"),
		),
		requiredKey("colliderGroups",
			requiredKey("node"),
			requiredKey("colliders", requiredKey("offset", vector3Keys...), requiredKey("radius")),
		),
	),
}

// checkKeys walks v against rules and reports the first missing key. A null
// member counts as missing. Members of the wrong kind are left to Decode.
func checkKeys(v Value, rules []keyRule) error {
	switch v.Kind() {
	case KindArray:
		for _, item := range v.Items() {
			if err := checkKeys(item, rules); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
	default:
		return nil
	}

	for _, r := range rules {
		member, ok := v.Get(r.key)
		if !ok || member.IsNull() {
			if r.optional {
				continue
			}
			return keyNotFound(r.key)
		}
		if err := checkKeys(member, r.nested); err != nil {
			return err
		}
	}
	return nil
}

// decodeLegacy decodes the legacy extension object. A missing required key
// at any depth fails with KeyNotFound named by it.
func decodeLegacy(ext Value) (*VRM0, error) {
	if err := checkKeys(ext, legacySchema); err != nil {
		return nil, err
	}

	out := &VRM0{}
	sections := []struct {
		key string
		dst any
	}{
		{"meta", &out.Meta},
		{"materialProperties", &out.MaterialProperties},
		{"humanoid", &out.Humanoid},
		{"blendShapeMaster", &out.BlendShapeMaster},
		{"firstPerson", &out.FirstPerson},
		{"secondaryAnimation", &out.SecondaryAnimation},
	}
	for _, s := range sections {
		raw, _ := ext.Get(s.key)
		if err := raw.Decode(s.dst); err != nil {
			return nil, inconsistent(err, "decoding %s", s.key)
		}
	}

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"exporterVersion", &out.ExporterVersion},
		{"specVersion", &out.SpecVersion},
		{"version", &out.Version},
	} {
		if v, ok := ext.Get(f.key); ok {
			*f.dst, _ = v.Text()
		}
	}

	return out, nil
}
