package vrm

import (
	"sort"
	"strings"
)

// Migrate projects a current-schema avatar onto the legacy shape. It only
// reads doc and v, so it is safe to call concurrently, and it is
// deterministic: equal inputs give structurally equal results. Absent
// optional sections migrate to empty legacy sections.
func Migrate(doc *Document, v *VRM1) *VRM0 {
	return &VRM0{
		SpecVersion:        v.SpecVersion,
		Version:            v.SpecVersion,
		Meta:               migrateMeta(v.Meta),
		Humanoid:           migrateHumanoid(v.Humanoid),
		FirstPerson:        migrateFirstPerson(v.FirstPerson, v.LookAt),
		BlendShapeMaster:   migrateExpressions(doc, v.Expressions),
		SecondaryAnimation: migrateSpringBone(v.SpringBone),
		MaterialProperties: migrateMaterials(doc, v.MToon),
	}
}

func migrateMeta(m MetaV1) Meta {
	out := Meta{
		Title:              m.Name,
		Version:            m.Version,
		Author:             strings.Join(m.Authors, ", "),
		ContactInformation: m.ContactInformation,
		Reference:          strings.Join(m.References, ", "),
		Texture:            m.ThumbnailImage,
		AllowedUserName:    "Everyone",
		ViolentUssageName:  usage(m.AllowExcessivelyViolentUsage),
		SexualUssageName:   usage(m.AllowExcessivelySexualUsage),
		// Both fields come from otherLicenseUrl. This mirrors the observed
		// mapping and is kept until consumers confirm the intended source.
		OtherPermissionURL: m.OtherLicenseURL,
		LicenseName:        m.OtherLicenseURL,
		OtherLicenseURL:    m.OtherLicenseURL,
	}
	if m.CommercialUsage != nil {
		out.CommercialUssageName = *m.CommercialUsage
	}
	return out
}

func usage(flag *bool) string {
	if flag != nil && *flag {
		return UsageAllow
	}
	return UsageDisallow
}

func migrateHumanoid(h HumanoidV1) Humanoid {
	out := Humanoid{
		HumanBones:        []HumanBone{},
		ArmStretch:        DefaultArmStretch,
		FeetSpacing:       DefaultFeetSpacing,
		HasTranslationDoF: DefaultHasTranslationDoF,
		LegStretch:        DefaultLegStretch,
		LowerArmTwist:     DefaultTwist,
		LowerLegTwist:     DefaultTwist,
		UpperArmTwist:     DefaultTwist,
		UpperLegTwist:     DefaultTwist,
	}
	for _, name := range HumanBoneNames {
		bone, ok := h.HumanBones[name]
		if !ok {
			continue
		}
		out.HumanBones = append(out.HumanBones, HumanBone{
			Bone:             name,
			Node:             bone.Node,
			UseDefaultValues: true,
		})
	}
	return out
}

func migrateExpressions(doc *Document, e *ExpressionsV1) BlendShapeMaster {
	out := BlendShapeMaster{BlendShapeGroups: []BlendShapeGroup{}}
	if e == nil {
		return out
	}

	for _, p := range expressionPresets {
		expr, ok := e.Preset[p.key]
		if !ok {
			continue
		}
		out.BlendShapeGroups = append(out.BlendShapeGroups, migrateExpression(doc, p.group, p.preset, expr))
	}

	// Custom expressions follow the presets in ascending name order. Entries
	// that do not decode as an expression are skipped.
	names := e.Custom.Keys()
	sort.Strings(names)
	for i, name := range names {
		if i > 0 && names[i-1] == name {
			continue
		}
		raw, _ := e.Custom.Get(name)
		var expr ExpressionV1
		if err := raw.Decode(&expr); err != nil {
			continue
		}
		out.BlendShapeGroups = append(out.BlendShapeGroups, migrateExpression(doc, name, PresetUnknown, expr))
	}
	return out
}

func migrateExpression(doc *Document, name string, preset BlendShapePreset, e ExpressionV1) BlendShapeGroup {
	g := BlendShapeGroup{
		Name:           name,
		PresetName:     string(preset),
		Binds:          []BlendShapeBind{},
		MaterialValues: []MaterialValueBind{},
		IsBinary:       e.IsBinary != nil && *e.IsBinary,
	}

	for _, b := range e.MorphTargetBinds {
		mesh, ok := resolveBindMesh(doc, b.Node)
		if !ok {
			continue
		}
		g.Binds = append(g.Binds, BlendShapeBind{
			Mesh:   mesh,
			Index:  b.Index,
			Weight: b.Weight * 100,
		})
	}

	for _, b := range e.MaterialColorBinds {
		name, ok := doc.MaterialName(b.Material)
		if !ok {
			continue
		}
		g.MaterialValues = append(g.MaterialValues, MaterialValueBind{
			MaterialName: name,
			PropertyName: b.Type,
			TargetValue:  padVector(b.TargetValue, 4, 0),
		})
	}
	return g
}

// resolveBindMesh maps a morph bind's node to its mesh. An index outside the
// node table is read as a mesh index instead.
func resolveBindMesh(doc *Document, node int) (int, bool) {
	if node >= 0 && node < len(doc.Nodes) {
		return doc.MeshOfNode(node)
	}
	if node >= 0 && node < len(doc.Meshes) {
		return node, true
	}
	return 0, false
}

// padVector copies v and pads it with fill up to n components.
func padVector(v []float64, n int, fill float64) []float64 {
	out := make([]float64, len(v), max(len(v), n))
	copy(out, v)
	for len(out) < n {
		out = append(out, fill)
	}
	return out
}

func migrateFirstPerson(fp *FirstPersonV1, lookAt *LookAtV1) FirstPerson {
	out := FirstPerson{
		FirstPersonBone: -1,
		MeshAnnotations: []MeshAnnotation{},
		LookAtTypeName:  LookAtNone,
	}
	if fp != nil {
		for _, a := range fp.MeshAnnotations {
			out.MeshAnnotations = append(out.MeshAnnotations, MeshAnnotation{
				FirstPersonFlag: a.Type,
				Mesh:            a.Node,
			})
		}
	}
	if lookAt == nil {
		return out
	}

	switch lookAt.Type {
	case LookAtTypeBone:
		out.LookAtTypeName = LookAtBone
	case LookAtTypeExpression:
		out.LookAtTypeName = LookAtBlendShape
	}
	out.FirstPersonBoneOffset = vector3(lookAt.OffsetFromHeadBone)
	out.LookAtHorizontalInner = degreeMap(lookAt.RangeMapHorizontalInner)
	out.LookAtHorizontalOuter = degreeMap(lookAt.RangeMapHorizontalOuter)
	out.LookAtVerticalDown = degreeMap(lookAt.RangeMapVerticalDown)
	out.LookAtVerticalUp = degreeMap(lookAt.RangeMapVerticalUp)
	return out
}

func degreeMap(r *RangeMap) *DegreeMap {
	if r == nil {
		return nil
	}
	return &DegreeMap{
		Curve:  []float64{0, 0, 0, 1, 1, 1, 1, 0},
		XRange: r.InputMaxValue,
		YRange: r.OutputScale,
	}
}
