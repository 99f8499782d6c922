package vrm

import (
	"encoding/base64"
	"strings"
)

// BufferData returns the bytes of buffer i. Buffer 0 without a URI is the
// container's BIN chunk; otherwise only base64 data URIs are resolved.
func (c *Container) BufferData(i int) ([]byte, error) {
	if i < 0 || i >= len(c.Document.Buffers) || c.Document.Buffers[i] == nil {
		return nil, inconsistent(nil, "buffer %d out of range (%d buffers)", i, len(c.Document.Buffers))
	}
	b := c.Document.Buffers[i]
	switch {
	case b.Data != nil:
		return b.Data, nil
	case b.URI == "":
		if i != 0 || c.Binary == nil {
			return nil, inconsistent(nil, "buffer %d refers to a missing BIN chunk", i)
		}
		return c.Binary, nil
	}
	data, _, err := decodeDataURI(b.URI)
	if err != nil {
		return nil, inconsistent(err, "buffer %d", i)
	}
	return data, nil
}

// BufferViewData returns the bytes of buffer view i and its byte stride,
// zero when the view is tightly packed.
func (c *Container) BufferViewData(i int) ([]byte, int, error) {
	if i < 0 || i >= len(c.Document.BufferViews) || c.Document.BufferViews[i] == nil {
		return nil, 0, inconsistent(nil, "buffer view %d out of range (%d views)", i, len(c.Document.BufferViews))
	}
	view := c.Document.BufferViews[i]
	buf, err := c.BufferData(view.Buffer)
	if err != nil {
		return nil, 0, err
	}
	off, n := view.ByteOffset, view.ByteLength
	if off < 0 || n < 0 || off > len(buf) || n > len(buf)-off {
		return nil, 0, inconsistent(nil, "buffer view %d (offset %d, length %d) exceeds a %d byte buffer", i, off, n, len(buf))
	}
	return buf[off : off+n], view.ByteStride, nil
}

// decodeDataURI decodes a base64 data URI and returns its media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", inconsistent(nil, "external uri %q is not supported", uri)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", inconsistent(nil, "malformed data uri")
	}
	mediaType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, "", inconsistent(nil, "data uri is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", inconsistent(err, "decoding data uri")
	}
	return data, mediaType, nil
}
