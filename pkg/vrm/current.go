package vrm

// Document extension keys of the current schema.
const (
	ExtensionCurrent    = "VRMC_vrm"
	ExtensionSpringBone = "VRMC_springBone"
	ExtensionMToon      = "VRMC_materials_mtoon"
	ExtensionUnlit      = "KHR_materials_unlit"
)

// VRM1 is the current (1.0) avatar description. Spring bones and MToon
// materials live in their own extensions and are gathered here at parse time.
type VRM1 struct {
	SpecVersion string         `json:"specVersion"`
	Meta        MetaV1         `json:"meta"`
	Humanoid    HumanoidV1     `json:"humanoid"`
	FirstPerson *FirstPersonV1 `json:"firstPerson,omitempty"`
	LookAt      *LookAtV1      `json:"lookAt,omitempty"`
	Expressions *ExpressionsV1 `json:"expressions,omitempty"`

	SpringBone *SpringBoneV1 `json:"-"`
	// MToon holds the decoded MToon extension of each document material,
	// nil where a material has none.
	MToon []*MToon `json:"-"`
}

type MetaV1 struct {
	Name                         string   `json:"name"`
	Version                      string   `json:"version,omitempty"`
	Authors                      []string `json:"authors"`
	CopyrightInformation         string   `json:"copyrightInformation,omitempty"`
	ContactInformation           string   `json:"contactInformation,omitempty"`
	References                   []string `json:"references,omitempty"`
	ThirdPartyLicenses           string   `json:"thirdPartyLicenses,omitempty"`
	ThumbnailImage               *int     `json:"thumbnailImage,omitempty"`
	LicenseURL                   string   `json:"licenseUrl"`
	AvatarPermission             string   `json:"avatarPermission,omitempty"`
	AllowExcessivelyViolentUsage *bool    `json:"allowExcessivelyViolentUsage,omitempty"`
	AllowExcessivelySexualUsage  *bool    `json:"allowExcessivelySexualUsage,omitempty"`
	CommercialUsage              *string  `json:"commercialUsage,omitempty"`
	AllowPoliticalOrReligious    *bool    `json:"allowPoliticalOrReligiousUsage,omitempty"`
	AllowAntisocialOrHateUsage   *bool    `json:"allowAntisocialOrHateUsage,omitempty"`
	CreditNotation               string   `json:"creditNotation,omitempty"`
	AllowRedistribution          *bool    `json:"allowRedistribution,omitempty"`
	Modification                 string   `json:"modification,omitempty"`
	OtherLicenseURL              string   `json:"otherLicenseUrl,omitempty"`
}

// HumanoidV1 maps bone slot names (see HumanBoneNames) to nodes.
type HumanoidV1 struct {
	HumanBones map[string]HumanBoneV1 `json:"humanBones"`
}

type HumanBoneV1 struct {
	Node int `json:"node"`
}

type FirstPersonV1 struct {
	MeshAnnotations []MeshAnnotationV1 `json:"meshAnnotations,omitempty"`
}

// MeshAnnotationV1 Type is one of auto, both, thirdPersonOnly, firstPersonOnly.
type MeshAnnotationV1 struct {
	Node int    `json:"node"`
	Type string `json:"type"`
}

// Look-at types of the current schema.
const (
	LookAtTypeBone       = "bone"
	LookAtTypeExpression = "expression"
)

type LookAtV1 struct {
	OffsetFromHeadBone      []float64 `json:"offsetFromHeadBone,omitempty"`
	Type                    string    `json:"type,omitempty"`
	RangeMapHorizontalInner *RangeMap `json:"rangeMapHorizontalInner,omitempty"`
	RangeMapHorizontalOuter *RangeMap `json:"rangeMapHorizontalOuter,omitempty"`
	RangeMapVerticalDown    *RangeMap `json:"rangeMapVerticalDown,omitempty"`
	RangeMapVerticalUp      *RangeMap `json:"rangeMapVerticalUp,omitempty"`
}

type RangeMap struct {
	InputMaxValue float64 `json:"inputMaxValue"`
	OutputScale   float64 `json:"outputScale"`
}

// ExpressionsV1 holds the preset expressions keyed by preset name (see
// ExpressionPresetNames) and the open map of custom expressions.
type ExpressionsV1 struct {
	Preset map[string]ExpressionV1 `json:"preset,omitempty"`
	Custom Value                   `json:"custom,omitzero"`
}

type ExpressionV1 struct {
	MorphTargetBinds      []MorphTargetBind      `json:"morphTargetBinds,omitempty"`
	MaterialColorBinds    []MaterialColorBind    `json:"materialColorBinds,omitempty"`
	TextureTransformBinds []TextureTransformBind `json:"textureTransformBinds,omitempty"`
	IsBinary              *bool                  `json:"isBinary,omitempty"`
	OverrideBlink         string                 `json:"overrideBlink,omitempty"`
	OverrideLookAt        string                 `json:"overrideLookAt,omitempty"`
	OverrideMouth         string                 `json:"overrideMouth,omitempty"`
}

type MorphTargetBind struct {
	Node   int     `json:"node"`
	Index  int     `json:"index"`
	Weight float64 `json:"weight"`
}

// MaterialColorBind Type is one of color, emissionColor, shadeColor,
// matcapColor, rimColor, outlineColor.
type MaterialColorBind struct {
	Material    int       `json:"material"`
	Type        string    `json:"type"`
	TargetValue []float64 `json:"targetValue"`
}

type TextureTransformBind struct {
	Material int       `json:"material"`
	Scale    []float64 `json:"scale,omitempty"`
	Offset   []float64 `json:"offset,omitempty"`
}

// SpringBoneV1 is the VRMC_springBone extension.
type SpringBoneV1 struct {
	SpecVersion    string                `json:"specVersion,omitempty"`
	Colliders      []SpringCollider      `json:"colliders,omitempty"`
	ColliderGroups []SpringColliderGroup `json:"colliderGroups,omitempty"`
	Springs        []Spring              `json:"springs,omitempty"`
}

type SpringCollider struct {
	Node  int           `json:"node"`
	Shape ColliderShape `json:"shape"`
}

// ColliderShape holds exactly one of Sphere or Capsule.
type ColliderShape struct {
	Sphere  *SphereShape  `json:"sphere,omitempty"`
	Capsule *CapsuleShape `json:"capsule,omitempty"`
}

type SphereShape struct {
	Offset []float64 `json:"offset,omitempty"`
	Radius float64   `json:"radius,omitempty"`
}

type CapsuleShape struct {
	Offset []float64 `json:"offset,omitempty"`
	Radius float64   `json:"radius,omitempty"`
	Tail   []float64 `json:"tail,omitempty"`
}

type SpringColliderGroup struct {
	Name      string `json:"name,omitempty"`
	Colliders []int  `json:"colliders"`
}

type Spring struct {
	Name           string        `json:"name,omitempty"`
	Joints         []SpringJoint `json:"joints"`
	ColliderGroups []int         `json:"colliderGroups,omitempty"`
	Center         *int          `json:"center,omitempty"`
}

// SpringJoint carries per-joint physics parameters. Absent parameters take
// the defaults applied by migration.
type SpringJoint struct {
	Node         int       `json:"node"`
	HitRadius    *float64  `json:"hitRadius,omitempty"`
	Stiffness    *float64  `json:"stiffness,omitempty"`
	GravityPower *float64  `json:"gravityPower,omitempty"`
	GravityDir   []float64 `json:"gravityDir,omitempty"`
	DragForce    *float64  `json:"dragForce,omitempty"`
}

// TextureInfo references a texture from a schema extension.
type TextureInfo struct {
	Index    int      `json:"index"`
	TexCoord int      `json:"texCoord,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
}

// Outline width modes of MToon.
const (
	OutlineNone              = "none"
	OutlineWorldCoordinates  = "worldCoordinates"
	OutlineScreenCoordinates = "screenCoordinates"
)

// MToon is the VRMC_materials_mtoon material extension.
type MToon struct {
	SpecVersion                     string       `json:"specVersion,omitempty"`
	TransparentWithZWrite           *bool        `json:"transparentWithZWrite,omitempty"`
	RenderQueueOffsetNumber         *int         `json:"renderQueueOffsetNumber,omitempty"`
	ShadeColorFactor                []float64    `json:"shadeColorFactor,omitempty"`
	ShadeMultiplyTexture            *TextureInfo `json:"shadeMultiplyTexture,omitempty"`
	ShadingShiftFactor              *float64     `json:"shadingShiftFactor,omitempty"`
	ShadingShiftTexture             *TextureInfo `json:"shadingShiftTexture,omitempty"`
	ShadingToonyFactor              *float64     `json:"shadingToonyFactor,omitempty"`
	GIEqualizationFactor            *float64     `json:"giEqualizationFactor,omitempty"`
	MatcapFactor                    []float64    `json:"matcapFactor,omitempty"`
	MatcapTexture                   *TextureInfo `json:"matcapTexture,omitempty"`
	ParametricRimColorFactor        []float64    `json:"parametricRimColorFactor,omitempty"`
	RimMultiplyTexture              *TextureInfo `json:"rimMultiplyTexture,omitempty"`
	RimLightingMixFactor            *float64     `json:"rimLightingMixFactor,omitempty"`
	ParametricRimFresnelPowerFactor *float64     `json:"parametricRimFresnelPowerFactor,omitempty"`
	ParametricRimLiftFactor         *float64     `json:"parametricRimLiftFactor,omitempty"`
	OutlineWidthMode                string       `json:"outlineWidthMode,omitempty"`
	OutlineWidthFactor              *float64     `json:"outlineWidthFactor,omitempty"`
	OutlineWidthMultiplyTexture     *TextureInfo `json:"outlineWidthMultiplyTexture,omitempty"`
	OutlineColorFactor              []float64    `json:"outlineColorFactor,omitempty"`
	OutlineLightingMixFactor        *float64     `json:"outlineLightingMixFactor,omitempty"`
}

// decodeCurrent decodes the current-schema extensions of doc. Only the
// sections the schema requires are checked; everything else is optional.
func decodeCurrent(doc *Document) (*VRM1, error) {
	ext, ok := doc.Extension(ExtensionCurrent)
	if !ok {
		return nil, keyNotFound(ExtensionCurrent)
	}
	for _, k := range []string{"specVersion", "meta", "humanoid"} {
		if !ext.Has(k) {
			return nil, keyNotFound(k)
		}
	}
	meta, _ := ext.Get("meta")
	for _, k := range []string{"name", "authors", "licenseUrl"} {
		if !meta.Has(k) {
			return nil, keyNotFound(k)
		}
	}
	humanoid, _ := ext.Get("humanoid")
	bones, ok := humanoid.Get("humanBones")
	if !ok {
		return nil, keyNotFound("humanBones")
	}
	for _, b := range bones.Members() {
		if n, ok := b.Value.Get("node"); !ok || n.IsNull() {
			return nil, keyNotFound("node")
		}
	}

	out := &VRM1{}
	if err := ext.Decode(out); err != nil {
		return nil, inconsistent(err, "decoding %s", ExtensionCurrent)
	}

	if raw, ok := doc.Extension(ExtensionSpringBone); ok {
		sb := &SpringBoneV1{}
		if err := raw.Decode(sb); err != nil {
			return nil, inconsistent(err, "decoding %s", ExtensionSpringBone)
		}
		out.SpringBone = sb
	}

	out.MToon = make([]*MToon, len(doc.Materials))
	for i, m := range doc.Materials {
		if m == nil {
			continue
		}
		raw, ok := elementExtension(m.Extensions, ExtensionMToon)
		if !ok {
			continue
		}
		mt := &MToon{}
		if err := raw.Decode(mt); err != nil {
			return nil, inconsistent(err, "decoding material %d %s", i, ExtensionMToon)
		}
		out.MToon[i] = mt
	}

	return out, nil
}
