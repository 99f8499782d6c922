// Package vrmtest builds synthetic VRM containers for tests.
package vrmtest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/Faultbox/vrmkit/pkg/vrm"
)

// Chunk is one raw chunk of a binary envelope.
type Chunk struct {
	Type uint32
	Data []byte
}

// Envelope assembles a binary envelope from raw header fields. A zero total
// is replaced by the real length.
func Envelope(magic, version, total uint32, chunks ...Chunk) []byte {
	var body bytes.Buffer
	for _, c := range chunks {
		binary.Write(&body, binary.LittleEndian, uint32(len(c.Data)))
		binary.Write(&body, binary.LittleEndian, c.Type)
		body.Write(c.Data)
	}
	if total == 0 {
		total = uint32(12 + body.Len())
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, magic)
	binary.Write(&buf, binary.LittleEndian, version)
	binary.Write(&buf, binary.LittleEndian, total)
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// GLB wraps a JSON chunk and an optional BIN chunk into a valid envelope.
func GLB(jsonChunk, bin []byte) []byte {
	chunks := []Chunk{{Type: vrm.ChunkJSON, Data: pad(jsonChunk, ' ')}}
	if bin != nil {
		chunks = append(chunks, Chunk{Type: vrm.ChunkBIN, Data: pad(bin, 0)})
	}
	return Envelope(vrm.GLBMagic, vrm.GLBVersion, 0, chunks...)
}

func pad(b []byte, fill byte) []byte {
	out := append([]byte(nil), b...)
	for len(out)%4 != 0 {
		out = append(out, fill)
	}
	return out
}

// Encode marshals doc and wraps it with bin.
func Encode(doc *vrm.Document, bin []byte) []byte {
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("vrmtest: marshal document: %v", err))
	}
	return GLB(data, bin)
}

// MustValue converts v to a vrm.Value and panics on failure.
func MustValue(v any) vrm.Value {
	val, err := vrm.ValueOf(v)
	if err != nil {
		panic(fmt.Sprintf("vrmtest: %v", err))
	}
	return val
}

// Without returns a copy of object v without key.
func Without(v vrm.Value, key string) vrm.Value {
	var members []vrm.Member
	for _, m := range v.Members() {
		if m.Key != key {
			members = append(members, m)
		}
	}
	return vrm.ObjectValue(members...)
}

// With returns a copy of object v with key set to val.
func With(v vrm.Value, key string, val vrm.Value) vrm.Value {
	members := append([]vrm.Member(nil), Without(v, key).Members()...)
	members = append(members, vrm.Member{Key: key, Value: val})
	return vrm.ObjectValue(members...)
}

// PNG encodes a w x h opaque image.
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(fmt.Sprintf("vrmtest: encode png: %v", err))
	}
	return buf.Bytes()
}

func ptr[T any](v T) *T { return &v }
