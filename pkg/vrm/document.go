package vrm

import (
	"encoding/json"

	"github.com/qmuntal/gltf"
)

// Document is the glTF 2.0 JSON document stored in chunk 0 of a container.
// The glTF model comes from gltf.Document; the top-level extensions are kept
// as an ordered Value since the avatar schemas live there.
type Document struct {
	gltf.Document

	// Extensions shadows gltf.Document.Extensions, which stays nil.
	Extensions Value
}

// UnmarshalJSON decodes the glTF model and the top-level extensions.
func (d *Document) UnmarshalJSON(data []byte) error {
	var top struct {
		Extensions Value `json:"extensions"`
	}
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	var doc gltf.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	doc.Extensions = nil
	d.Document = doc
	d.Extensions = top.Extensions
	return nil
}

// MarshalJSON encodes the glTF model with Extensions as its top-level
// extensions object.
func (d Document) MarshalJSON() ([]byte, error) {
	out := d.Document
	out.Extensions = nil
	if members := d.Extensions.Members(); len(members) > 0 {
		out.Extensions = make(gltf.Extensions, len(members))
		for _, m := range members {
			out.Extensions[m.Key] = m.Value
		}
	}
	return json.Marshal(&out)
}

// Extension reads a top-level document extension by name.
func (d *Document) Extension(name string) (Value, bool) {
	return d.Extensions.Get(name)
}

// MeshOfNode returns the mesh attached to node i.
func (d *Document) MeshOfNode(i int) (int, bool) {
	if i < 0 || i >= len(d.Nodes) || d.Nodes[i] == nil || d.Nodes[i].Mesh == nil {
		return 0, false
	}
	return *d.Nodes[i].Mesh, true
}

// MaterialName returns the name of material i.
func (d *Document) MaterialName(i int) (string, bool) {
	if i < 0 || i >= len(d.Materials) || d.Materials[i] == nil {
		return "", false
	}
	return d.Materials[i].Name, true
}

// elementExtension reads extension name from the extensions of a document
// element such as a material or node.
func elementExtension(ext gltf.Extensions, name string) (Value, bool) {
	raw, ok := ext[name]
	if !ok {
		return Value{}, false
	}
	v, err := ValueOf(raw)
	if err != nil {
		return Value{}, false
	}
	return v, true
}

func newFloat(v float64) *float64 { return &v }

// assignDefaults fills the optional material factors with their glTF
// defaults. Enumerations and fixed arrays already decode to their defaults.
func (d *Document) assignDefaults() {
	for _, m := range d.Materials {
		if m == nil {
			continue
		}
		if p := m.PBRMetallicRoughness; p != nil {
			if p.BaseColorFactor == nil {
				p.BaseColorFactor = &[4]float64{1, 1, 1, 1}
			}
			if p.MetallicFactor == nil {
				p.MetallicFactor = newFloat(1)
			}
			if p.RoughnessFactor == nil {
				p.RoughnessFactor = newFloat(1)
			}
		}
		if p := m.NormalTexture; p != nil && p.Scale == nil {
			p.Scale = newFloat(1)
		}
		if p := m.OcclusionTexture; p != nil && p.Strength == nil {
			p.Strength = newFloat(1)
		}
		if m.AlphaCutoff == nil {
			m.AlphaCutoff = newFloat(0.5)
		}
	}
}
