package loader

import (
	"fmt"
	"path"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common"
)

// Resolve turns the index based cross references of doc into pointers. Every index is checked, so a
// document that resolves never fails later on a missing accessor, material or image. Calling Resolve
// again is a no-op.
//
// Parameters:
//   - doc: the parsed document
//
// Returns:
//   - error: a dangling-reference error naming the first index that points at nothing
func Resolve(doc *Document) error {
	if doc.resolved {
		return nil
	}
	r := resolver{doc: doc}

	for i := range doc.BufferViews {
		v := &doc.BufferViews[i]
		if !r.in(v.Buffer, len(doc.Buffers), "bufferView %d buffer", i) {
			return r.err
		}
		v.Buf = &doc.Buffers[v.Buffer]
		if v.ByteOffset+v.ByteLength > v.Buf.ByteLength {
			return common.DanglingReferenceError("loader.Resolve", "%s: bufferView %d ends at %d past buffer length %d",
				doc.Filename, i, v.ByteOffset+v.ByteLength, v.Buf.ByteLength)
		}
	}

	for i := range doc.Accessors {
		a := &doc.Accessors[i]
		if a.BufferView == nil {
			continue
		}
		if !r.in(*a.BufferView, len(doc.BufferViews), "accessor %d bufferView", i) {
			return r.err
		}
		a.View = &doc.BufferViews[*a.BufferView]
	}

	for i := range doc.Images {
		img := &doc.Images[i]
		switch {
		case img.BufferView != nil:
			if !r.in(*img.BufferView, len(doc.BufferViews), "image %d bufferView", i) {
				return r.err
			}
			img.View = &doc.BufferViews[*img.BufferView]
			img.Key = fmt.Sprintf("%s#image%d", doc.Filename, i)
		case strings.HasPrefix(img.URI, "data:"):
			img.Key = fmt.Sprintf("%s#image%d", doc.Filename, i)
		case img.URI != "":
			img.Key = path.Join(doc.Dir, img.URI)
		default:
			return common.DanglingReferenceError("loader.Resolve", "%s: image %d has neither uri nor bufferView", doc.Filename, i)
		}
	}

	for i := range doc.Textures {
		t := &doc.Textures[i]
		if t.Source != nil {
			if !r.in(*t.Source, len(doc.Images), "texture %d source", i) {
				return r.err
			}
			t.Image = &doc.Images[*t.Source]
		}
		if t.Sampler != nil {
			if !r.in(*t.Sampler, len(doc.Samplers), "texture %d sampler", i) {
				return r.err
			}
			t.SamplerRef = &doc.Samplers[*t.Sampler]
		}
	}

	for i := range doc.Materials {
		m := &doc.Materials[i]
		for _, info := range materialTextureInfos(m) {
			if !r.in(info.Index, len(doc.Textures), "material %d texture", i) {
				return r.err
			}
			info.Ref = &doc.Textures[info.Index]
		}
	}

	for i := range doc.Meshes {
		for j := range doc.Meshes[i].Primitives {
			if err := r.primitive(i, j); err != nil {
				return err
			}
		}
	}

	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if n.Mesh != nil {
			if !r.in(*n.Mesh, len(doc.Meshes), "node %d mesh", i) {
				return r.err
			}
			n.MeshRef = &doc.Meshes[*n.Mesh]
		}
		n.ChildNodes = n.ChildNodes[:0]
		for _, c := range n.Children {
			if !r.in(c, len(doc.Nodes), "node %d child", i) {
				return r.err
			}
			n.ChildNodes = append(n.ChildNodes, &doc.Nodes[c])
		}
	}

	for i := range doc.Scenes {
		s := &doc.Scenes[i]
		s.Roots = s.Roots[:0]
		for _, n := range s.Nodes {
			if !r.in(n, len(doc.Nodes), "scene %d node", i) {
				return r.err
			}
			s.Roots = append(s.Roots, &doc.Nodes[n])
		}
	}
	if doc.Scene != nil && !r.in(*doc.Scene, len(doc.Scenes), "default scene") {
		return r.err
	}

	doc.resolved = true
	return nil
}

// DefaultScene returns the scene named by the document, the first scene, or nil.
func (d *Document) DefaultScene() *Scene {
	if d.Scene != nil && *d.Scene < len(d.Scenes) {
		return &d.Scenes[*d.Scene]
	}
	if len(d.Scenes) > 0 {
		return &d.Scenes[0]
	}
	return nil
}

// Primitives returns every primitive of every mesh.
func (d *Document) Primitives() []*Primitive {
	var all []*Primitive
	for i := range d.Meshes {
		for j := range d.Meshes[i].Primitives {
			all = append(all, &d.Meshes[i].Primitives[j])
		}
	}
	return all
}

type resolver struct {
	doc *Document
	err error
}

func (r *resolver) in(index, length int, format string, args ...any) bool {
	if index >= 0 && index < length {
		return true
	}
	what := fmt.Sprintf(format, args...)
	r.err = common.DanglingReferenceError("loader.Resolve", "%s: %s index %d out of range [0,%d)", r.doc.Filename, what, index, length)
	return false
}

func (r *resolver) primitive(mesh, index int) error {
	doc := r.doc
	p := &doc.Meshes[mesh].Primitives[index]
	if _, ok := p.Attributes[AttributePosition]; !ok {
		return common.DanglingReferenceError("loader.Resolve", "%s: mesh %d primitive %d has no POSITION", doc.Filename, mesh, index)
	}
	p.Accessors = make(map[string]*Accessor, len(p.Attributes))
	for semantic, a := range p.Attributes {
		if !r.in(a, len(doc.Accessors), "mesh %d primitive %d %s", mesh, index, semantic) {
			return r.err
		}
		p.Accessors[semantic] = &doc.Accessors[a]
	}
	if p.Indices != nil {
		if !r.in(*p.Indices, len(doc.Accessors), "mesh %d primitive %d indices", mesh, index) {
			return r.err
		}
		p.IndexData = &doc.Accessors[*p.Indices]
	}
	if p.Material != nil {
		if !r.in(*p.Material, len(doc.Materials), "mesh %d primitive %d material", mesh, index) {
			return r.err
		}
		p.MaterialRef = &doc.Materials[*p.Material]
	}
	return nil
}

func materialTextureInfos(m *Material) []*TextureInfo {
	var infos []*TextureInfo
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			infos = append(infos, pbr.BaseColorTexture)
		}
		if pbr.MetallicRoughnessTexture != nil {
			infos = append(infos, pbr.MetallicRoughnessTexture)
		}
	}
	if m.NormalTexture != nil {
		infos = append(infos, &m.NormalTexture.TextureInfo)
	}
	if m.OcclusionTexture != nil {
		infos = append(infos, &m.OcclusionTexture.TextureInfo)
	}
	if m.EmissiveTexture != nil {
		infos = append(infos, m.EmissiveTexture)
	}
	return infos
}
