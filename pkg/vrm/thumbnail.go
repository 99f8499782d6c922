package vrm

import (
	"bytes"
	"image"
	_ "image/jpeg" // register decoders for thumbnail validation
	_ "image/png"
)

// ImageData is an encoded image resolved from a document.
type ImageData struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// ImageData resolves image i through its URI or buffer view and checks that
// the bytes decode as an image.
func (c *Container) ImageData(i int) (*ImageData, error) {
	doc := c.Document
	if i < 0 || i >= len(doc.Images) || doc.Images[i] == nil {
		return nil, inconsistent(nil, "image %d out of range (%d images)", i, len(doc.Images))
	}
	img := doc.Images[i]

	out := &ImageData{MimeType: img.MimeType}
	switch {
	case img.URI != "":
		data, mediaType, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, inconsistent(err, "image %d", i)
		}
		out.Data = data
		if out.MimeType == "" {
			out.MimeType = mediaType
		}
	case img.BufferView != nil:
		data, _, err := c.BufferViewData(*img.BufferView)
		if err != nil {
			return nil, err
		}
		out.Data = data
	default:
		return nil, inconsistent(nil, "image %d has neither uri nor bufferView", i)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		return nil, inconsistent(err, "image %d is not a decodable image", i)
	}
	out.Width, out.Height = cfg.Width, cfg.Height
	if out.MimeType == "" {
		out.MimeType = "image/" + format
	}
	return out, nil
}

// Thumbnail returns the avatar's thumbnail image. The legacy schema names a
// texture, the current schema names an image directly. An avatar without a
// thumbnail, or a legacy avatar with a negative texture index, fails with
// ErrThumbnailNotFound.
func Thumbnail(a Avatar) (*ImageData, error) {
	c := a.Container()

	var index int
	switch v := a.(type) {
	case *LegacyAvatar:
		// Exporters write -1 for "no thumbnail".
		tex := v.vrm.Meta.Texture
		if tex == nil || *tex < 0 {
			return nil, ErrThumbnailNotFound
		}
		if *tex >= len(c.Document.Textures) || c.Document.Textures[*tex] == nil {
			return nil, inconsistent(nil, "thumbnail texture %d out of range", *tex)
		}
		src := c.Document.Textures[*tex].Source
		if src == nil {
			return nil, ErrThumbnailNotFound
		}
		index = *src
	case *CurrentAvatar:
		img := v.vrm.Meta.ThumbnailImage
		if img == nil {
			return nil, ErrThumbnailNotFound
		}
		index = *img
	default:
		return nil, ErrThumbnailNotFound
	}

	return c.ImageData(index)
}
