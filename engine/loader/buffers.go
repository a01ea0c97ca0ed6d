package loader

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common"
)

// LoadBuffers fetches the payload of every buffer: the GLB binary chunk, a base64 data URI, or a file
// relative to the document. Buffers that are already loaded are skipped.
//
// Parameters:
//   - fsys: the file system external URIs are read from
//   - doc: a resolved document
//
// Returns:
//   - error: an error wrapping common.ErrNotFound if a payload cannot be read or is shorter than declared
func LoadBuffers(fsys fs.FS, doc *Document) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		if buf.Loaded() {
			continue
		}

		var data []byte
		var err error
		switch {
		case buf.URI == "" && i == 0 && doc.glbChunk != nil:
			data = doc.glbChunk
		case buf.URI == "":
			err = fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, _, err = decodeDataURI(buf.URI)
		default:
			data, err = fs.ReadFile(fsys, path.Join(doc.Dir, buf.URI))
		}
		if err != nil {
			return fmt.Errorf("%w: %s buffer %d: %w", common.ErrNotFound, doc.Filename, i, err)
		}
		if len(data) < buf.ByteLength {
			return fmt.Errorf("%w: %s buffer %d: %w: %d < %d", common.ErrNotFound, doc.Filename, i, errBufferSizeMismatch, len(data), buf.ByteLength)
		}
		buf.Data = data
	}
	return nil
}

// UnloadBuffers drops every payload, including generated buffers, so the document returns to its
// metadata-only state.
func UnloadBuffers(doc *Document) {
	for i := range doc.Buffers {
		doc.Buffers[i].Data = nil
		doc.Buffers[i].VBO = 0
	}
	doc.Generated = nil
}

// ImageData returns the encoded bytes of an embedded image, or nil for an external file the caller loads
// through its own image factory using img.Key.
//
// Parameters:
//   - img: a resolved image of a document with loaded buffers
//
// Returns:
//   - []byte: the encoded image, nil for external files
//   - error: an error if the data URI is malformed or the buffer view is not loaded
func ImageData(img *Image) ([]byte, error) {
	switch {
	case img.View != nil:
		if !img.View.Buf.Loaded() {
			return nil, fmt.Errorf("%w: image %s buffer is not loaded", common.ErrNotFound, img.Key)
		}
		data := make([]byte, img.View.ByteLength)
		copy(data, img.View.Buf.Data[img.View.ByteOffset:img.View.ByteOffset+img.View.ByteLength])
		return data, nil
	case strings.HasPrefix(img.URI, "data:"):
		data, _, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("%w: image %s: %w", common.ErrNotFound, img.Key, err)
		}
		return data, nil
	default:
		return nil, nil
	}
}
