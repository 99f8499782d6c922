package vrm_test

import (
	"reflect"
	"slices"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/Faultbox/vrmkit/pkg/vrm"
	"github.com/Faultbox/vrmkit/pkg/vrm/vrmtest"
)

const tolerance = 1e-9

func TestMigrate_Meta(t *testing.T) {
	m := loadCurrent(t).Meta()

	if m.Title != vrmtest.FixtureTitle {
		t.Errorf("expected title %q, got %q", vrmtest.FixtureTitle, m.Title)
	}
	if m.Author != vrmtest.FixtureAuthor {
		t.Errorf("expected author %q, got %q", vrmtest.FixtureAuthor, m.Author)
	}
	if m.Reference != "https://example.com/a, https://example.com/b" {
		t.Errorf("unexpected reference %q", m.Reference)
	}
	if m.AllowedUserName != "Everyone" {
		t.Errorf("expected Everyone, got %q", m.AllowedUserName)
	}
	if m.ViolentUssageName != vrm.UsageDisallow {
		t.Errorf("expected violent usage Disallow, got %q", m.ViolentUssageName)
	}
	if m.SexualUssageName != vrm.UsageAllow {
		t.Errorf("expected sexual usage Allow, got %q", m.SexualUssageName)
	}
	if m.CommercialUssageName != "corporation" {
		t.Errorf("expected commercial usage corporation, got %q", m.CommercialUssageName)
	}
	if m.Texture == nil || *m.Texture != 0 {
		t.Errorf("expected texture 0, got %v", m.Texture)
	}
	if m.OtherLicenseURL != "https://example.com/license" || m.LicenseName != m.OtherLicenseURL || m.OtherPermissionURL != m.OtherLicenseURL {
		t.Errorf("expected license fields from otherLicenseUrl, got %+v", m)
	}
}

func TestMigrate_MetaUsageFlags(t *testing.T) {
	tests := []struct {
		name       string
		violent    *bool
		commercial *string
		wantUsage  string
		wantComm   string
	}{
		{"absent", nil, nil, vrm.UsageDisallow, ""},
		{"false", new(bool), nil, vrm.UsageDisallow, ""},
		{"true", ptr(true), ptr("personalProfit"), vrm.UsageAllow, "personalProfit"},
		{"non profit", nil, ptr("personalNonProfit"), vrm.UsageDisallow, "personalNonProfit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := vrmtest.CurrentVRM()
			v.Meta.AllowExcessivelyViolentUsage = tt.violent
			v.Meta.CommercialUsage = tt.commercial
			doc, _ := vrmtest.CurrentDocument()

			m := vrm.Migrate(doc, v).Meta
			if m.ViolentUssageName != tt.wantUsage {
				t.Errorf("expected %q, got %q", tt.wantUsage, m.ViolentUssageName)
			}
			if m.CommercialUssageName != tt.wantComm {
				t.Errorf("expected %q, got %q", tt.wantComm, m.CommercialUssageName)
			}
		})
	}
}

func TestMigrate_Humanoid(t *testing.T) {
	h := loadCurrent(t).Humanoid()

	if len(h.HumanBones) != vrmtest.FixtureBoneCount {
		t.Fatalf("expected %d bones, got %d", vrmtest.FixtureBoneCount, len(h.HumanBones))
	}
	if h.HumanBones[0].Bone != "hips" {
		t.Errorf("expected hips first, got %q", h.HumanBones[0].Bone)
	}
	if node, _ := h.NodeFor("hips"); node != vrmtest.HipsNode {
		t.Errorf("expected hips on node %d, got %d", vrmtest.HipsNode, node)
	}
	if node, _ := h.NodeFor("head"); node != vrmtest.HeadNode {
		t.Errorf("expected head on node %d, got %d", vrmtest.HeadNode, node)
	}
	for _, name := range vrmtest.FixtureOmittedBones {
		if _, ok := h.NodeFor(name); ok {
			t.Errorf("expected %q to be absent", name)
		}
	}

	// Bones follow the schema order.
	last := -1
	for _, b := range h.HumanBones {
		i := slices.Index(vrm.HumanBoneNames, b.Bone)
		if i <= last {
			t.Errorf("bone %q out of order", b.Bone)
		}
		last = i
		if !b.UseDefaultValues {
			t.Errorf("expected useDefaultValues on %q", b.Bone)
		}
	}

	if h.ArmStretch != vrm.DefaultArmStretch || h.LegStretch != vrm.DefaultLegStretch {
		t.Errorf("unexpected stretch %v %v", h.ArmStretch, h.LegStretch)
	}
	if h.UpperArmTwist != vrm.DefaultTwist || h.LowerLegTwist != vrm.DefaultTwist {
		t.Errorf("unexpected twist %v %v", h.UpperArmTwist, h.LowerLegTwist)
	}
	if h.FeetSpacing != 0 || h.HasTranslationDoF {
		t.Errorf("unexpected feet spacing %v translation %v", h.FeetSpacing, h.HasTranslationDoF)
	}
	if got := len(h.BoneNodes()); got != vrmtest.FixtureBoneCount {
		t.Errorf("expected %d bone nodes, got %d", vrmtest.FixtureBoneCount, got)
	}
}

func TestMigrate_BlendShapes(t *testing.T) {
	groups := loadCurrent(t).BlendShapeGroups()

	if len(groups) != len(vrm.ExpressionPresetNames()) {
		t.Fatalf("expected %d groups, got %d", len(vrm.ExpressionPresetNames()), len(groups))
	}
	wantPresets := map[string]vrm.BlendShapePreset{
		"Happy":     vrm.PresetJoy,
		"Angry":     vrm.PresetAngry,
		"Sad":       vrm.PresetSorrow,
		"Relaxed":   vrm.PresetFun,
		"Surprised": vrm.PresetUnknown,
	}
	for i, g := range groups[:5] {
		if want, ok := wantPresets[g.Name]; !ok || g.PresetName != string(want) {
			t.Errorf("group %d: unexpected %s/%s", i, g.Name, g.PresetName)
		}
	}

	happy := groups[0]
	if happy.Name != "Happy" || happy.PresetName != string(vrm.PresetJoy) {
		t.Errorf("expected Happy/joy first, got %s/%s", happy.Name, happy.PresetName)
	}
	if len(happy.Binds) != 1 {
		t.Fatalf("expected 1 bind, got %d", len(happy.Binds))
	}
	if b := happy.Binds[0]; b.Mesh != 0 || b.Index != 2 || !scalar.EqualWithinAbs(b.Weight, 50, tolerance) {
		t.Errorf("unexpected bind %+v", b)
	}
	if len(happy.MaterialValues) != 1 {
		t.Fatalf("expected 1 material value, got %d", len(happy.MaterialValues))
	}
	mv := happy.MaterialValues[0]
	if mv.MaterialName != "Hair" || mv.PropertyName != "color" {
		t.Errorf("unexpected material value %+v", mv)
	}
	if !reflect.DeepEqual(mv.TargetValue, []float64{1, 0.5, 0.25, 0}) {
		t.Errorf("expected target padded to 4, got %v", mv.TargetValue)
	}

	master := vrm.BlendShapeMaster{BlendShapeGroups: groups}
	blink, ok := master.Group(vrm.PresetKey(vrm.PresetBlink))
	if !ok {
		t.Fatalf("blink group not found")
	}
	if !blink.IsBinary || len(blink.Binds) != 2 || blink.Binds[1].Mesh != 2 {
		t.Errorf("unexpected blink group %+v", blink)
	}

	surprised, ok := master.Group(vrm.CustomKey("Surprised"))
	if !ok || surprised.PresetName != string(vrm.PresetUnknown) {
		t.Errorf("expected Surprised as an unknown preset, got %+v", surprised)
	}
}

func TestMigrate_CustomExpressions(t *testing.T) {
	v := vrmtest.CurrentVRM()
	v.Expressions.Custom = vrmtest.CustomExpressions()
	doc, _ := vrmtest.CurrentDocument()
	groups := vrm.Migrate(doc, v).BlendShapeMaster.BlendShapeGroups

	// Custom expressions follow the presets sorted by name; entries that do
	// not decode are dropped.
	presets := len(vrm.ExpressionPresetNames())
	if len(groups) != presets+2 {
		t.Fatalf("expected %d groups, got %d", presets+2, len(groups))
	}
	alpha, zeta := groups[presets], groups[presets+1]
	if alpha.Name != "alpha" || zeta.Name != "zeta" {
		t.Errorf("expected alpha, zeta; got %q, %q", alpha.Name, zeta.Name)
	}
	if zeta.PresetName != string(vrm.PresetUnknown) || len(zeta.Binds) != 1 || zeta.Binds[0].Mesh != 2 {
		t.Errorf("unexpected custom group %+v", zeta)
	}
	for _, g := range groups {
		if g.Name == "broken" {
			t.Errorf("expected malformed custom expression to be skipped")
		}
	}

	if again := vrm.Migrate(doc, v).BlendShapeMaster.BlendShapeGroups; !reflect.DeepEqual(groups, again) {
		t.Errorf("expected deterministic custom expression order")
	}
}

func TestMigrate_BlendShapesDropUnresolvedBinds(t *testing.T) {
	v := vrmtest.CurrentVRM()
	v.Expressions.Preset["happy"] = vrm.ExpressionV1{
		MorphTargetBinds: []vrm.MorphTargetBind{
			{Node: vrmtest.HipsNode, Index: 0, Weight: 1}, // node without a mesh
			{Node: 10000, Index: 0, Weight: 1},            // outside both tables
		},
		MaterialColorBinds: []vrm.MaterialColorBind{{Material: 99, Type: "color"}},
	}
	doc, _ := vrmtest.CurrentDocument()

	happy := vrm.Migrate(doc, v).BlendShapeMaster.BlendShapeGroups[0]
	if len(happy.Binds) != 0 || len(happy.MaterialValues) != 0 {
		t.Errorf("expected unresolved binds dropped, got %+v", happy)
	}
}

func TestMigrate_NoExpressions(t *testing.T) {
	v := vrmtest.CurrentVRM()
	v.Expressions = nil
	doc, _ := vrmtest.CurrentDocument()

	groups := vrm.Migrate(doc, v).BlendShapeMaster.BlendShapeGroups
	if groups == nil || len(groups) != 0 {
		t.Errorf("expected an empty group list, got %v", groups)
	}
}

func TestMigrate_FirstPerson(t *testing.T) {
	fp := loadCurrent(t).FirstPerson()

	if fp.FirstPersonBone != -1 {
		t.Errorf("expected first person bone -1, got %d", fp.FirstPersonBone)
	}
	if len(fp.MeshAnnotations) != vrmtest.FixtureAnnotations {
		t.Errorf("expected %d annotations, got %d", vrmtest.FixtureAnnotations, len(fp.MeshAnnotations))
	}
	if fp.MeshAnnotations[2].FirstPersonFlag != "thirdPersonOnly" || fp.MeshAnnotations[2].Mesh != 2 {
		t.Errorf("unexpected annotation %+v", fp.MeshAnnotations[2])
	}
	if fp.LookAtTypeName != vrm.LookAtBlendShape {
		t.Errorf("expected BlendShape look-at, got %q", fp.LookAtTypeName)
	}
	if !scalar.EqualWithinAbs(fp.FirstPersonBoneOffset.Y, 0.06, tolerance) {
		t.Errorf("unexpected offset %+v", fp.FirstPersonBoneOffset)
	}
	up := fp.LookAtVerticalUp
	if up == nil || up.XRange != 60 || up.YRange != 0.5 || len(up.Curve) != 8 {
		t.Errorf("unexpected vertical up map %+v", up)
	}
}

func TestMigrate_FirstPersonDefaults(t *testing.T) {
	v := vrmtest.CurrentVRM()
	v.FirstPerson = nil
	v.LookAt = nil
	doc, _ := vrmtest.CurrentDocument()

	fp := vrm.Migrate(doc, v).FirstPerson
	if fp.LookAtTypeName != vrm.LookAtNone {
		t.Errorf("expected None look-at, got %q", fp.LookAtTypeName)
	}
	if fp.MeshAnnotations == nil || len(fp.MeshAnnotations) != 0 {
		t.Errorf("expected empty annotations, got %v", fp.MeshAnnotations)
	}
	if fp.LookAtHorizontalInner != nil {
		t.Errorf("expected no degree maps")
	}

	v.LookAt = &vrm.LookAtV1{Type: vrm.LookAtTypeBone}
	if got := vrm.Migrate(doc, v).FirstPerson.LookAtTypeName; got != vrm.LookAtBone {
		t.Errorf("expected Bone look-at, got %q", got)
	}
}

func TestMigrate_SecondaryAnimation(t *testing.T) {
	sa := loadCurrent(t).SecondaryAnimation()

	if len(sa.ColliderGroups) != 6 {
		t.Fatalf("expected 6 collider groups, got %d", len(sa.ColliderGroups))
	}
	if g := sa.ColliderGroups[0]; g.Node != vrmtest.ChestColliderNode || len(g.Colliders) != 1 {
		t.Errorf("unexpected first collider group %+v", g)
	}
	head := sa.ColliderGroups[1]
	if head.Node != vrmtest.HeadColliderNode || len(head.Colliders) != 3 {
		t.Fatalf("unexpected head collider group %+v", head)
	}
	capsule := head.Colliders[2]
	if capsule.Radius != 0.04 || capsule.Offset.Z != 0.05 {
		t.Errorf("expected capsule reduced to its head sphere, got %+v", capsule)
	}

	want := []struct {
		comment   string
		bones     []int
		stiffness float64
		center    int
		colliders []int
	}{
		{"hair", []int{10, 11}, 1, -1, []int{0, 2, 3}},
		{"hair", []int{12, 13}, 2, -1, []int{0, 2, 3}},
		{"hair", []int{14}, 1, -1, []int{0, 2, 3}},
		{"skirt", []int{20, 21}, 1, vrmtest.HipsNode, []int{1}},
	}
	if len(sa.BoneGroups) != len(want) {
		t.Fatalf("expected %d bone groups, got %d", len(want), len(sa.BoneGroups))
	}
	for i, w := range want {
		g := sa.BoneGroups[i]
		if g.Comment != w.comment || !reflect.DeepEqual(g.Bones, w.bones) || g.Stiffness != w.stiffness || g.Center != w.center {
			t.Errorf("group %d: unexpected %+v", i, g)
		}
		if !reflect.DeepEqual(g.ColliderGroups, w.colliders) {
			t.Errorf("group %d: expected collider groups %v, got %v", i, w.colliders, g.ColliderGroups)
		}
		if g.DragForce != vrm.DefaultDragForce || g.HitRadius != vrm.DefaultHitRadius || g.GravityDir != vrm.DefaultGravityDir {
			t.Errorf("group %d: expected default parameters, got %+v", i, g)
		}
	}
}

func TestMigrate_SpringJointsArePartitioned(t *testing.T) {
	v := vrmtest.CurrentVRM()
	v.SpringBone = vrmtest.CurrentSpringBone()
	doc, _ := vrmtest.CurrentDocument()
	sa := vrm.Migrate(doc, v).SecondaryAnimation

	var joints, bones []int
	for _, s := range v.SpringBone.Springs {
		for _, j := range s.Joints {
			joints = append(joints, j.Node)
		}
	}
	for _, g := range sa.BoneGroups {
		bones = append(bones, g.Bones...)
	}
	if !reflect.DeepEqual(joints, bones) {
		t.Errorf("expected bone groups to partition joints %v, got %v", joints, bones)
	}
}

func TestMigrate_NoSpringBone(t *testing.T) {
	data := mutated(vrmtest.CurrentDocument, func(doc *vrm.Document) {
		doc.Extensions = vrmtest.Without(doc.Extensions, vrm.ExtensionSpringBone)
	})
	a, err := vrm.LoadAvatar(data)
	if err != nil {
		t.Fatalf("LoadAvatar failed: %v", err)
	}

	sa := a.SecondaryAnimation()
	if sa.BoneGroups == nil || len(sa.BoneGroups) != 0 {
		t.Errorf("expected empty bone groups, got %v", sa.BoneGroups)
	}
	if sa.ColliderGroups == nil || len(sa.ColliderGroups) != 0 {
		t.Errorf("expected empty collider groups, got %v", sa.ColliderGroups)
	}
}

func TestMigrate_MaterialProperties(t *testing.T) {
	props := loadCurrent(t).MaterialProperties()
	if len(props) != 3 {
		t.Fatalf("expected 3 material properties, got %d", len(props))
	}

	t.Run("mtoon", func(t *testing.T) {
		p := props[0]
		if p.Name != "Body" || p.Shader != vrm.ShaderMToon || p.RenderQueue != vrm.RenderQueueOpaque {
			t.Fatalf("unexpected header %s %s %d", p.Name, p.Shader, p.RenderQueue)
		}
		if !scalar.EqualWithinAbs(p.FloatProperties["_ShadingToony"], vrmtest.FixtureToony, tolerance) {
			t.Errorf("unexpected toony %v", p.FloatProperties["_ShadingToony"])
		}
		if !scalar.EqualWithinAbs(p.FloatProperties["_ShadingShift"], vrmtest.FixtureShift, tolerance) {
			t.Errorf("unexpected shift %v", p.FloatProperties["_ShadingShift"])
		}
		shade := p.VectorProperties["_ShadeColor"]
		if len(shade) != 4 || !scalar.EqualWithinAbs(shade[0], vrmtest.FixtureShadeRed, tolerance) || shade[3] != 1 {
			t.Errorf("unexpected shade color %v", shade)
		}
		if !reflect.DeepEqual(p.VectorProperties["_Color"], []float64{1, 0.9, 0.8, 1}) {
			t.Errorf("unexpected color %v", p.VectorProperties["_Color"])
		}
		if p.FloatProperties["_OutlineWidthMode"] != 1 {
			t.Errorf("expected world outline mode 1, got %v", p.FloatProperties["_OutlineWidthMode"])
		}
		if _, ok := p.TextureProperties["_SphereAdd"]; !ok {
			t.Errorf("expected matcap texture")
		}
		if _, ok := p.TextureProperties["_MainTex"]; !ok {
			t.Errorf("expected main texture")
		}
		if _, ok := p.FloatProperties["_RimLift"]; ok {
			t.Errorf("expected absent factors to stay absent")
		}
	})

	t.Run("standard mask", func(t *testing.T) {
		p := props[1]
		if p.Shader != vrm.ShaderStandard || p.RenderQueue != vrm.RenderQueueAlphaTest {
			t.Fatalf("unexpected header %s %d", p.Shader, p.RenderQueue)
		}
		if p.TagMap["RenderType"] != "TransparentCutout" {
			t.Errorf("unexpected render type %q", p.TagMap["RenderType"])
		}
		checks := map[string]float64{
			"_Cutoff":     0.3,
			"_Metallic":   0,
			"_Glossiness": 0.75,
			"_BumpScale":  0.5,
			"_Cull":       0,
		}
		for key, want := range checks {
			got, ok := p.FloatProperties[key]
			if !ok || !scalar.EqualWithinAbs(got, want, tolerance) {
				t.Errorf("%s: expected %v, got %v (present %v)", key, want, got, ok)
			}
		}
		if !p.KeywordMap["_NORMALMAP"] {
			t.Errorf("expected _NORMALMAP keyword")
		}
		if p.KeywordMap["_EMISSION"] {
			t.Errorf("expected no _EMISSION keyword")
		}
	})

	t.Run("unlit blend", func(t *testing.T) {
		p := props[2]
		if p.Shader != vrm.ShaderUnlit || p.RenderQueue != vrm.RenderQueueTransparent {
			t.Fatalf("unexpected header %s %d", p.Shader, p.RenderQueue)
		}
		if p.TagMap["RenderType"] != "Transparent" {
			t.Errorf("unexpected render type %q", p.TagMap["RenderType"])
		}
		if !reflect.DeepEqual(p.VectorProperties["_EmissionColor"], []float64{0.5, 0, 0, 1}) {
			t.Errorf("unexpected emission %v", p.VectorProperties["_EmissionColor"])
		}
		if !p.KeywordMap["_EMISSION"] {
			t.Errorf("expected _EMISSION keyword")
		}
		if _, ok := p.FloatProperties["_Cull"]; ok {
			t.Errorf("expected single-sided material without _Cull")
		}
	})

	byName := loadCurrent(t).MaterialPropertyNameMap()
	if byName["Hair"].RenderQueue != vrm.RenderQueueAlphaTest {
		t.Errorf("expected Hair in the name map")
	}
}

func ptr[T any](v T) *T { return &v }
