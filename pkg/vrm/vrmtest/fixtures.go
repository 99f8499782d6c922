package vrmtest

import (
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/vrmkit/pkg/vrm"
)

// Facts about the current-schema fixture.
const (
	FixtureTitle       = "Seed-san"
	FixtureAuthor      = "VirtualCast, Inc."
	FixtureBoneCount   = 51
	FixtureAnnotations = 5
	FixtureShadeRed    = 0.301212043
	FixtureToony       = 0.95
	FixtureShift       = -0.05
)

// FixtureOmittedBones are the humanoid slots the current fixture leaves out.
var FixtureOmittedBones = []string{"jaw", "leftToes", "rightToes", "upperChest"}

// CurrentVRM returns the VRMC_vrm extension of the current fixture.
func CurrentVRM() *vrm.VRM1 {
	bones := make(map[string]vrm.HumanBoneV1)
	next := 50
	for _, name := range vrm.HumanBoneNames {
		if omitted(name) {
			continue
		}
		switch name {
		case "hips":
			bones[name] = vrm.HumanBoneV1{Node: HipsNode}
		case "head":
			bones[name] = vrm.HumanBoneV1{Node: HeadNode}
		default:
			bones[name] = vrm.HumanBoneV1{Node: next}
			next++
		}
	}

	presets := make(map[string]vrm.ExpressionV1)
	for _, name := range vrm.ExpressionPresetNames() {
		presets[name] = vrm.ExpressionV1{}
	}
	presets["happy"] = vrm.ExpressionV1{
		MorphTargetBinds:   []vrm.MorphTargetBind{{Node: 0, Index: 2, Weight: 0.5}},
		MaterialColorBinds: []vrm.MaterialColorBind{{Material: 1, Type: "color", TargetValue: []float64{1, 0.5, 0.25}}},
	}
	presets["blink"] = vrm.ExpressionV1{
		MorphTargetBinds: []vrm.MorphTargetBind{
			{Node: 1, Index: 0, Weight: 1},
			{Node: 2, Index: 1, Weight: 0.25},
		},
		IsBinary: ptr(true),
	}

	return &vrm.VRM1{
		SpecVersion: "1.0",
		Meta: vrm.MetaV1{
			Name:                         FixtureTitle,
			Version:                      "1",
			Authors:                      []string{FixtureAuthor},
			ContactInformation:           "https://example.com/contact",
			References:                   []string{"https://example.com/a", "https://example.com/b"},
			ThumbnailImage:               ptr(0),
			LicenseURL:                   "https://vrm.dev/licenses/1.0/",
			AvatarPermission:             "onlyAuthor",
			AllowExcessivelyViolentUsage: ptr(false),
			AllowExcessivelySexualUsage:  ptr(true),
			CommercialUsage:              ptr("corporation"),
			Modification:                 "prohibited",
			OtherLicenseURL:              "https://example.com/license",
		},
		Humanoid: vrm.HumanoidV1{HumanBones: bones},
		FirstPerson: &vrm.FirstPersonV1{MeshAnnotations: []vrm.MeshAnnotationV1{
			{Node: 0, Type: "auto"},
			{Node: 1, Type: "both"},
			{Node: 2, Type: "thirdPersonOnly"},
			{Node: 3, Type: "firstPersonOnly"},
			{Node: 4, Type: "auto"},
		}},
		LookAt: &vrm.LookAtV1{
			OffsetFromHeadBone:      []float64{0, 0.06, 0.02},
			Type:                    vrm.LookAtTypeExpression,
			RangeMapHorizontalInner: &vrm.RangeMap{InputMaxValue: 90, OutputScale: 1},
			RangeMapHorizontalOuter: &vrm.RangeMap{InputMaxValue: 90, OutputScale: 1},
			RangeMapVerticalDown:    &vrm.RangeMap{InputMaxValue: 90, OutputScale: 1},
			RangeMapVerticalUp:      &vrm.RangeMap{InputMaxValue: 60, OutputScale: 0.5},
		},
		Expressions: &vrm.ExpressionsV1{Preset: presets},
	}
}

// CustomExpressions returns an unordered custom expression map: "zeta" binds
// node 2, "alpha" is empty and "broken" is not an expression.
func CustomExpressions() vrm.Value {
	return vrm.ObjectValue(
		vrm.Member{Key: "zeta", Value: MustValue(vrm.ExpressionV1{
			MorphTargetBinds: []vrm.MorphTargetBind{{Node: 2, Index: 3, Weight: 1}},
		})},
		vrm.Member{Key: "alpha", Value: MustValue(vrm.ExpressionV1{})},
		vrm.Member{Key: "broken", Value: vrm.StringValue("not an expression")},
	)
}

func omitted(name string) bool {
	for _, o := range FixtureOmittedBones {
		if o == name {
			return true
		}
	}
	return false
}

// CurrentSpringBone returns the VRMC_springBone extension of the current
// fixture. Colliders sit on nodes 4-9; node 4 owns one and node 5 three.
func CurrentSpringBone() *vrm.SpringBoneV1 {
	sphere := func(node int, offset []float64, r float64) vrm.SpringCollider {
		return vrm.SpringCollider{Node: node, Shape: vrm.ColliderShape{Sphere: &vrm.SphereShape{Offset: offset, Radius: r}}}
	}
	return &vrm.SpringBoneV1{
		SpecVersion: "1.0",
		Colliders: []vrm.SpringCollider{
			sphere(ChestColliderNode, []float64{0, 0, 0}, 0.1),
			sphere(HeadColliderNode, []float64{0, 0, 0}, 0.05),
			sphere(HeadColliderNode, []float64{0, 0.05, 0}, 0.05),
			sphere(6, nil, 0.02),
			{Node: HeadColliderNode, Shape: vrm.ColliderShape{Capsule: &vrm.CapsuleShape{
				Offset: []float64{0, 0, 0.05}, Radius: 0.04, Tail: []float64{0, 0.1, 0.05},
			}}},
			sphere(7, nil, 0.02),
			sphere(8, nil, 0.02),
			sphere(9, nil, 0.02),
		},
		ColliderGroups: []vrm.SpringColliderGroup{
			{Name: "chest", Colliders: []int{0}},
			{Name: "head", Colliders: []int{1, 2, 4}},
			{Name: "arms", Colliders: []int{3, 5}},
			{Name: "legs", Colliders: []int{6, 7}},
		},
		Springs: []vrm.Spring{
			{
				Name: "hair",
				Joints: []vrm.SpringJoint{
					{Node: HairRoot},
					{Node: HairRoot + 1},
					{Node: HairRoot + 2, Stiffness: ptr(2.0)},
					{Node: HairRoot + 3, Stiffness: ptr(2.0)},
					{Node: HairRoot + 4},
				},
				ColliderGroups: []int{0, 2},
			},
			{
				Name:           "skirt",
				Joints:         []vrm.SpringJoint{{Node: SkirtRoot}, {Node: SkirtRoot + 1}},
				ColliderGroups: []int{1},
				Center:         ptr(HipsNode),
			},
		},
	}
}

// CurrentMToon returns the MToon extension of fixture material 0.
func CurrentMToon() *vrm.MToon {
	return &vrm.MToon{
		SpecVersion:          "1.0",
		ShadeColorFactor:     []float64{FixtureShadeRed, 0.2, 0.1},
		ShadingShiftFactor:   ptr(FixtureShift),
		ShadingToonyFactor:   ptr(FixtureToony),
		GIEqualizationFactor: ptr(0.9),
		MatcapTexture:        &vrm.TextureInfo{Index: 0},
		OutlineWidthMode:     vrm.OutlineWorldCoordinates,
		OutlineWidthFactor:   ptr(0.001),
		OutlineColorFactor:   []float64{0, 0, 0},
	}
}

// CurrentDocument builds the current-schema fixture document and its BIN
// chunk.
func CurrentDocument() (*vrm.Document, []byte) {
	nodes := Nodes()
	doc := &vrm.Document{
		Document: gltf.Document{
			Asset:  gltf.Asset{Version: "2.0", Generator: "vrmtest"},
			Scene:  ptr(0),
			Scenes: Scenes(nodes),
			Nodes:  nodes,
			Meshes: meshes(3),
			Materials: []*gltf.Material{
				{
					Name: "Body",
					PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
						BaseColorFactor:  &[4]float64{1, 0.9, 0.8, 1},
						BaseColorTexture: &gltf.TextureInfo{Index: 0},
					},
					Extensions: gltf.Extensions{vrm.ExtensionMToon: MustValue(CurrentMToon())},
				},
				{
					Name: "Hair",
					PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
						MetallicFactor:  ptr(0.0),
						RoughnessFactor: ptr(0.25),
					},
					NormalTexture: &gltf.NormalTexture{Index: ptr(0), Scale: ptr(0.5)},
					AlphaMode:     gltf.AlphaMask,
					AlphaCutoff:   ptr(0.3),
					DoubleSided:   true,
				},
				{
					Name:           "Cloth",
					AlphaMode:      gltf.AlphaBlend,
					EmissiveFactor: [3]float64{0.5, 0, 0},
					Extensions:     gltf.Extensions{vrm.ExtensionUnlit: map[string]any{}},
				},
			},
			Textures:       []*gltf.Texture{{Name: "thumbnail", Source: ptr(0)}},
			ExtensionsUsed: []string{vrm.ExtensionCurrent, vrm.ExtensionSpringBone, vrm.ExtensionMToon, vrm.ExtensionUnlit},
		},
		Extensions: vrm.ObjectValue(
			vrm.Member{Key: vrm.ExtensionCurrent, Value: MustValue(CurrentVRM())},
			vrm.Member{Key: vrm.ExtensionSpringBone, Value: MustValue(CurrentSpringBone())},
		),
	}
	bin := thumbnail(doc)
	return doc, bin
}

// Current returns the current-schema fixture as container bytes.
func Current() []byte {
	return Encode(CurrentDocument())
}

// LegacyVRM returns the VRM extension of the legacy fixture. Its material
// properties name "Skin" twice.
func LegacyVRM() *vrm.VRM0 {
	return &vrm.VRM0{
		ExporterVersion: "UniVRM-0.99",
		SpecVersion:     "0.0",
		Meta: vrm.Meta{
			Title:                "Legacy-kun",
			Version:              "0.1",
			Author:               "vrmtest",
			Texture:              ptr(0),
			AllowedUserName:      "OnlyAuthor",
			ViolentUssageName:    vrm.UsageDisallow,
			SexualUssageName:     vrm.UsageDisallow,
			CommercialUssageName: vrm.UsageAllow,
			LicenseName:          "CC_BY",
		},
		Humanoid: vrm.Humanoid{
			HumanBones: []vrm.HumanBone{
				{Bone: "hips", Node: HipsNode, UseDefaultValues: true},
				{Bone: "head", Node: HeadNode, UseDefaultValues: true},
			},
			ArmStretch:    vrm.DefaultArmStretch,
			LegStretch:    vrm.DefaultLegStretch,
			UpperArmTwist: vrm.DefaultTwist,
			LowerArmTwist: vrm.DefaultTwist,
			UpperLegTwist: vrm.DefaultTwist,
			LowerLegTwist: vrm.DefaultTwist,
		},
		FirstPerson: vrm.FirstPerson{
			FirstPersonBone:       HeadNode,
			FirstPersonBoneOffset: vrm.Vector3{Y: 0.06},
			MeshAnnotations:       []vrm.MeshAnnotation{{Mesh: 0, FirstPersonFlag: "Auto"}},
			LookAtTypeName:        vrm.LookAtBone,
		},
		BlendShapeMaster: vrm.BlendShapeMaster{BlendShapeGroups: []vrm.BlendShapeGroup{
			{Name: "A", PresetName: "a", Binds: []vrm.BlendShapeBind{{Mesh: 0, Index: 0, Weight: 100}}},
			{Name: "Joy", PresetName: "joy"},
			{Name: "Smirk", PresetName: "unknown"},
		}},
		SecondaryAnimation: vrm.SecondaryAnimation{
			BoneGroups: []vrm.BoneGroup{{
				Comment:        "hair",
				Stiffness:      1,
				GravityDir:     vrm.DefaultGravityDir,
				DragForce:      0.4,
				Center:         -1,
				HitRadius:      0.02,
				Bones:          []int{HairRoot},
				ColliderGroups: []int{0},
			}},
			ColliderGroups: []vrm.ColliderGroup{{
				Node:      ChestColliderNode,
				Colliders: []vrm.Collider{{Radius: 0.1}},
			}},
		},
		MaterialProperties: []vrm.MaterialProperty{
			legacyMaterial("Skin", vrm.ShaderMToon, vrm.RenderQueueOpaque),
			legacyMaterial("Hair", vrm.ShaderStandard, vrm.RenderQueueOpaque),
			legacyMaterial("Skin", vrm.ShaderMToon, vrm.RenderQueueAlphaTest),
		},
	}
}

func legacyMaterial(name, shader string, queue int) vrm.MaterialProperty {
	return vrm.MaterialProperty{
		Name:              name,
		Shader:            shader,
		RenderQueue:       queue,
		FloatProperties:   map[string]float64{},
		VectorProperties:  map[string][]float64{},
		TextureProperties: map[string]int{},
		KeywordMap:        map[string]bool{},
		TagMap:            map[string]string{},
	}
}

// LegacyDocument builds the legacy fixture document and its BIN chunk.
func LegacyDocument() (*vrm.Document, []byte) {
	nodes := Nodes()
	doc := &vrm.Document{
		Document: gltf.Document{
			Asset:          gltf.Asset{Version: "2.0", Generator: "vrmtest"},
			Scene:          ptr(0),
			Scenes:         Scenes(nodes),
			Nodes:          nodes,
			Meshes:         meshes(3),
			Materials:      []*gltf.Material{{Name: "Skin"}, {Name: "Hair"}},
			Textures:       []*gltf.Texture{{Name: "thumbnail", Source: ptr(0)}},
			ExtensionsUsed: []string{vrm.ExtensionLegacy},
		},
		Extensions: vrm.ObjectValue(vrm.Member{Key: vrm.ExtensionLegacy, Value: MustValue(LegacyVRM())}),
	}
	bin := thumbnail(doc)
	return doc, bin
}

// Legacy returns the legacy fixture as container bytes.
func Legacy() []byte {
	return Encode(LegacyDocument())
}
