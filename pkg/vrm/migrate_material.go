package vrm

import "github.com/qmuntal/gltf"

// Legacy render queues per alpha mode.
const (
	RenderQueueOpaque      = 2000
	RenderQueueAlphaTest   = 2450
	RenderQueueTransparent = 3000
)

func migrateMaterials(doc *Document, mtoon []*MToon) []MaterialProperty {
	out := make([]MaterialProperty, 0, len(doc.Materials))
	for i, m := range doc.Materials {
		if m == nil {
			m = &gltf.Material{}
		}
		if i < len(mtoon) && mtoon[i] != nil {
			out = append(out, mtoonProperty(m, mtoon[i]))
			continue
		}
		out = append(out, standardProperty(m))
	}
	return out
}

func newMaterialProperty(name, shader string, queue int) MaterialProperty {
	return MaterialProperty{
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

// colorVector pads an RGB color with alpha 1.
func colorVector(c []float64) []float64 {
	if len(c) == 3 {
		return padVector(c, 4, 1)
	}
	return padVector(c, 0, 0)
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func mtoonProperty(m *gltf.Material, mt *MToon) MaterialProperty {
	p := newMaterialProperty(m.Name, ShaderMToon, RenderQueueOpaque)

	setFloat := func(key string, v *float64) {
		if v != nil {
			p.FloatProperties[key] = *v
		}
	}
	setColor := func(key string, c []float64) {
		if c != nil {
			p.VectorProperties[key] = colorVector(c)
		}
	}
	setTexture := func(key string, t *TextureInfo) {
		if t != nil {
			p.TextureProperties[key] = t.Index
		}
	}

	setColor("_ShadeColor", mt.ShadeColorFactor)
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		p.VectorProperties["_Color"] = padVector(baseColor(pbr), 4, 1)
	}
	setFloat("_ShadingShift", mt.ShadingShiftFactor)
	setFloat("_ShadingToony", mt.ShadingToonyFactor)
	setFloat("_GiEqualization", mt.GIEqualizationFactor)
	setColor("_RimColor", mt.ParametricRimColorFactor)
	setFloat("_RimFresnelPower", mt.ParametricRimFresnelPowerFactor)
	setFloat("_RimLift", mt.ParametricRimLiftFactor)

	if mt.OutlineWidthMode != "" {
		var mode float64
		switch mt.OutlineWidthMode {
		case OutlineWorldCoordinates:
			mode = 1
		case OutlineScreenCoordinates:
			mode = 2
		}
		p.FloatProperties["_OutlineWidthMode"] = mode
	}
	setFloat("_OutlineWidth", mt.OutlineWidthFactor)
	setColor("_OutlineColor", mt.OutlineColorFactor)
	setFloat("_OutlineLightingMix", mt.OutlineLightingMixFactor)

	setTexture("_ShadeTexture", mt.ShadeMultiplyTexture)
	setTexture("_SphereAdd", mt.MatcapTexture)
	setTexture("_RimTexture", mt.RimMultiplyTexture)
	setTexture("_OutlineWidthTexture", mt.OutlineWidthMultiplyTexture)
	if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
		p.TextureProperties["_MainTex"] = pbr.BaseColorTexture.Index
	}
	if t := m.NormalTexture; t != nil && t.Index != nil {
		p.TextureProperties["_BumpMap"] = *t.Index
	}
	if t := m.EmissiveTexture; t != nil {
		p.TextureProperties["_EmissionMap"] = t.Index
	}

	return p
}

func baseColor(pbr *gltf.PBRMetallicRoughness) []float64 {
	if pbr.BaseColorFactor == nil {
		return []float64{1, 1, 1, 1}
	}
	c := *pbr.BaseColorFactor
	return c[:]
}

func standardProperty(m *gltf.Material) MaterialProperty {
	shader := ShaderStandard
	if _, ok := m.Extensions[ExtensionUnlit]; ok {
		shader = ShaderUnlit
	}
	p := newMaterialProperty(m.Name, shader, RenderQueueOpaque)

	switch m.AlphaMode {
	case gltf.AlphaMask:
		p.RenderQueue = RenderQueueAlphaTest
		p.TagMap["RenderType"] = "TransparentCutout"
		p.FloatProperties["_Cutoff"] = orDefault(m.AlphaCutoff, 0.5)
	case gltf.AlphaBlend:
		p.RenderQueue = RenderQueueTransparent
		p.TagMap["RenderType"] = "Transparent"
	default:
		p.TagMap["RenderType"] = "Opaque"
	}

	if pbr := m.PBRMetallicRoughness; pbr != nil {
		p.VectorProperties["_Color"] = padVector(baseColor(pbr), 4, 1)
		p.FloatProperties["_Metallic"] = orDefault(pbr.MetallicFactor, 1)
		p.FloatProperties["_Glossiness"] = 1 - orDefault(pbr.RoughnessFactor, 1)
		if pbr.BaseColorTexture != nil {
			p.TextureProperties["_MainTex"] = pbr.BaseColorTexture.Index
		}
		if pbr.MetallicRoughnessTexture != nil {
			p.TextureProperties["_MetallicGlossMap"] = pbr.MetallicRoughnessTexture.Index
		}
	}

	if t := m.NormalTexture; t != nil && t.Index != nil {
		p.TextureProperties["_BumpMap"] = *t.Index
		p.FloatProperties["_BumpScale"] = orDefault(t.Scale, 1)
		p.KeywordMap["_NORMALMAP"] = true
	}

	if t := m.OcclusionTexture; t != nil && t.Index != nil {
		p.TextureProperties["_OcclusionMap"] = *t.Index
		p.FloatProperties["_OcclusionStrength"] = orDefault(t.Strength, 1)
	}

	e := m.EmissiveFactor
	p.VectorProperties["_EmissionColor"] = []float64{e[0], e[1], e[2], 1}
	if e[0] > 0 || e[1] > 0 || e[2] > 0 {
		p.KeywordMap["_EMISSION"] = true
	}
	if t := m.EmissiveTexture; t != nil {
		p.TextureProperties["_EmissionMap"] = t.Index
		p.KeywordMap["_EMISSION"] = true
	}

	if m.DoubleSided {
		p.FloatProperties["_Cull"] = 0
	}

	return p
}
