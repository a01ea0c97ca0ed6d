package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidDataURI     = errors.New("invalid data URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// Parse decodes a glTF JSON document or a GLB container. Buffers are not loaded and references are not
// resolved; call Resolve and LoadBuffers for that.
//
// Parameters:
//   - data: the file contents
//   - filename: the document name, used as cache key and to resolve relative URIs
//
// Returns:
//   - *Document: the parsed document
//   - error: an argument error if the data is not a glTF 2.x document
func Parse(data []byte, filename string) (*Document, error) {
	var doc *Document
	var err error
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == glbMagic {
		doc, err = parseGLB(data)
	} else {
		doc, err = parseJSON(data)
	}
	if err != nil {
		return nil, common.ArgumentError("loader.Parse", "%s: %v", filename, err)
	}
	doc.Filename = filename
	doc.Dir = path.Dir(filename)
	if doc.Dir == "." {
		doc.Dir = ""
	}
	return doc, nil
}

// ParseReader reads r fully and parses it.
func ParseReader(r io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", common.ErrNotFound, filename, err)
	}
	return Parse(data, filename)
}

// ParseFile reads filename from fsys and parses it.
func ParseFile(fsys fs.FS, filename string) (*Document, error) {
	data, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", common.ErrNotFound, filename, err)
	}
	return Parse(data, filename)
}

func parseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, errInvalidGLTFVersion
	}
	return &doc, nil
}

// parseGLB parses a GLB binary container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func parseGLB(data []byte) (*Document, error) {
	if len(data) < 12 {
		return nil, errors.New("GLB file too small")
	}
	r := bytes.NewReader(data)

	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, errInvalidGLBMagic
	}
	if header.Version != glbVersion {
		return nil, errInvalidGLBVersion
	}

	var jsonData, binData []byte
	for {
		var chunk glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		chunkData := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case glbChunkJSON:
			jsonData = chunkData
		case glbChunkBIN:
			binData = chunkData
		}
	}
	if jsonData == nil {
		return nil, errMissingJSONChunk
	}

	doc, err := parseJSON(jsonData)
	if err != nil {
		return nil, err
	}
	doc.glbChunk = binData
	return doc, nil
}

// decodeDataURI decodes a base64 data URI and returns the payload and its media type.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, string, error) {
	comma := strings.Index(uri, ",")
	if !strings.HasPrefix(uri, "data:") || comma < 0 {
		return nil, "", errInvalidDataURI
	}
	header := uri[len("data:"):comma]
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mediaType, nil
}
