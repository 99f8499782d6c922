// Package vrm reads VRM avatars: the binary glTF container, the legacy (0.x)
// and current (1.0) avatar schemas, and the migration that presents every
// avatar through the legacy shape.
package vrm

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Binary glTF envelope constants.
const (
	GLBMagic   = 0x46546C67 // "glTF"
	GLBVersion = 2

	ChunkJSON = 0x4E4F534A // "JSON"
	ChunkBIN  = 0x004E4942 // "BIN\x00"
)

// Container is a decoded binary glTF envelope.
type Container struct {
	Version  uint32
	JSON     []byte    // chunk 0, BOM stripped
	Document *Document // chunk 0 decoded
	Binary   []byte    // chunk 1, nil when the envelope has a single chunk
}

// ParseContainer decodes a binary glTF envelope. The whole input is decoded
// eagerly; any error aborts the load.
func ParseContainer(data []byte) (*Container, error) {
	r := bytes.NewReader(data)

	magic, err := readUint32(r, "magic")
	if err != nil {
		return nil, err
	}
	if magic != GLBMagic {
		return nil, &VersionError{Raw: magic}
	}

	version, err := readUint32(r, "version")
	if err != nil {
		return nil, err
	}
	if version != GLBVersion {
		return nil, &VersionError{Raw: version}
	}

	total, err := readUint32(r, "length")
	if err != nil {
		return nil, err
	}

	jsonChunk, err := readChunk(r, ChunkJSON, "chunk 0")
	if err != nil {
		return nil, err
	}

	text, err := stripBOM(jsonChunk)
	if err != nil {
		return nil, inconsistent(err, "decoding chunk 0 text")
	}

	doc := &Document{}
	if err := json.Unmarshal(text, doc); err != nil {
		return nil, inconsistent(err, "decoding chunk 0 JSON")
	}
	doc.assignDefaults()

	c := &Container{
		Version:  version,
		JSON:     text,
		Document: doc,
	}

	consumed := r.Size() - int64(r.Len())
	if int64(total) > consumed {
		bin, err := readChunk(r, ChunkBIN, "chunk 1")
		if err != nil {
			return nil, err
		}
		c.Binary = bin
		if len(doc.Buffers) > 0 && doc.Buffers[0] != nil && doc.Buffers[0].URI == "" {
			doc.Buffers[0].Data = bin
		}
	}

	return c, nil
}

// ParseContainerFile reads and decodes a binary glTF file.
func ParseContainerFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseContainer(data)
}

func readUint32(r *bytes.Reader, field string) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, inconsistent(err, "reading %s", field)
	}
	return v, nil
}

func readChunk(r *bytes.Reader, want uint32, name string) ([]byte, error) {
	length, err := readUint32(r, name+" length")
	if err != nil {
		return nil, err
	}
	typ, err := readUint32(r, name+" type")
	if err != nil {
		return nil, err
	}
	if typ != want {
		return nil, &ChunkTypeError{Raw: typ}
	}
	if int64(length) > int64(r.Len()) {
		return nil, inconsistent(io.ErrUnexpectedEOF, "%s declares %d bytes, %d remain", name, length, r.Len())
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, inconsistent(err, "reading %s", name)
	}
	return buf, nil
}

// stripBOM removes a leading UTF-8 byte order mark some exporters write.
func stripBOM(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
	return out, err
}
