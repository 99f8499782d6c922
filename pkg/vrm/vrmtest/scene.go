package vrmtest

import (
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/vrmkit/pkg/vrm"
)

// Node layout shared by the fixtures.
const (
	NodeCount = 110

	HipsNode = 3
	HeadNode = 45

	// Hair chain: HairRoot -> ... -> HairRoot+HairLength-1, hanging down.
	HairRoot   = 10
	HairLength = 5

	// Skirt chain: SkirtRoot -> SkirtRoot+1.
	SkirtRoot = 20

	// Collider owner nodes.
	ChestColliderNode = 4
	HeadColliderNode  = 5
)

// Nodes builds the fixture node table. Nodes 0-2 carry meshes 0-2; the hips
// parent the hair, skirt, head and collider nodes; every other node is a
// root.
func Nodes() []*gltf.Node {
	nodes := make([]*gltf.Node, NodeCount)
	for i := range nodes {
		nodes[i] = &gltf.Node{
			Name:     nodeName(i),
			Rotation: [4]float64{0, 0, 0, 1},
			Scale:    [3]float64{1, 1, 1},
		}
	}
	for i := 0; i < 3; i++ {
		nodes[i].Mesh = ptr(i)
	}

	hips := nodes[HipsNode]
	hips.Translation = [3]float64{0, 1, 0}
	hips.Children = []int{HairRoot, SkirtRoot, HeadNode, 4, 5, 6, 7, 8, 9}

	nodes[HeadNode].Translation = [3]float64{0, 0.5, 0}

	nodes[HairRoot].Translation = [3]float64{0, 0.6, -0.1}
	for i := HairRoot; i < HairRoot+HairLength-1; i++ {
		nodes[i].Children = []int{i + 1}
		nodes[i+1].Translation = [3]float64{0, -0.1, 0}
	}

	nodes[SkirtRoot].Translation = [3]float64{0.1, -0.1, 0}
	nodes[SkirtRoot].Children = []int{SkirtRoot + 1}
	nodes[SkirtRoot+1].Translation = [3]float64{0, -0.2, 0}

	nodes[4].Translation = [3]float64{0, 0.3, 0}
	nodes[5].Translation = [3]float64{0, 0.6, 0}
	for i := 6; i <= 9; i++ {
		nodes[i].Translation = [3]float64{float64(i-6) * 0.1, 0, 0.2}
	}

	return nodes
}

func nodeName(i int) string {
	switch {
	case i == HipsNode:
		return "J_Hips"
	case i == HeadNode:
		return "J_Head"
	case i >= HairRoot && i < HairRoot+HairLength:
		return "J_Hair_" + string(rune('A'+i-HairRoot))
	default:
		return "Node_" + itoa(i)
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	return string(b)
}

// Scenes returns one scene rooted at every parentless node.
func Scenes(nodes []*gltf.Node) []*gltf.Scene {
	hasParent := make([]bool, len(nodes))
	for _, n := range nodes {
		for _, c := range n.Children {
			hasParent[c] = true
		}
	}
	var roots []int
	for i := range nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return []*gltf.Scene{{Name: "Scene", Nodes: roots}}
}

// meshes returns n minimal meshes.
func meshes(n int) []*gltf.Mesh {
	out := make([]*gltf.Mesh, n)
	for i := range out {
		out[i] = &gltf.Mesh{
			Name:       "Mesh_" + itoa(i),
			Primitives: []*gltf.Primitive{{Attributes: map[string]int{"POSITION": 0}}},
		}
	}
	return out
}

// thumbnail stores a PNG in buffer view 0 and returns the BIN chunk.
func thumbnail(doc *vrm.Document) []byte {
	img := PNG(4, 3)
	doc.Images = []*gltf.Image{{Name: "thumbnail", MimeType: "image/png", BufferView: ptr(0)}}
	doc.BufferViews = []*gltf.BufferView{{Buffer: 0, ByteOffset: 0, ByteLength: len(img)}}
	bin := pad(img, 0)
	doc.Buffers = []*gltf.Buffer{{ByteLength: len(bin)}}
	return bin
}
