package loader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/go-gl/mathgl/mgl32"
)

// TangentSpace holds per vertex tangent and bitangent vectors, three floats each.
type TangentSpace struct {
	Tangents   []float32
	Bitangents []float32
}

// ComputeTBN derives tangents and bitangents for a triangle list from its positions, normals and first
// texture coordinate set. Without texture coordinates every UV delta counts as (1,1). Non-indexed
// primitives are treated as sequential triangles. The result is orthogonalized against the normals.
//
// Parameters:
//   - p: a resolved primitive whose buffers are loaded
//
// Returns:
//   - TangentSpace: one tangent and one bitangent per vertex
//   - error: an argument error for non-triangle primitives or out of range indices
func ComputeTBN(p *Primitive) (TangentSpace, error) {
	const op = "loader.ComputeTBN"
	if p.DrawMode() != backend.DrawModeTriangles {
		return TangentSpace{}, common.ArgumentError(op, "tangent space needs a triangle list")
	}

	positions, err := ReadFloats(p.Accessors[AttributePosition])
	if err != nil {
		return TangentSpace{}, err
	}
	vertexCount := len(positions) / 3

	var normals, uvs []float32
	if a := p.Accessors[AttributeNormal]; a != nil {
		if normals, err = ReadFloats(a); err != nil {
			return TangentSpace{}, err
		}
	}
	if a := p.Accessors[AttributeTexCoord0]; a != nil {
		if uvs, err = ReadFloats(a); err != nil {
			return TangentSpace{}, err
		}
	}

	var indices []uint32
	if p.IndexData != nil {
		if indices, err = ReadIndices(p.IndexData); err != nil {
			return TangentSpace{}, err
		}
	} else {
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	tangents := make([]mgl32.Vec3, vertexCount)
	bitangents := make([]mgl32.Vec3, vertexCount)
	for i := 0; i+2 < len(indices); i += 3 {
		tri := [3]uint32{indices[i], indices[i+1], indices[i+2]}
		for _, v := range tri {
			if int(v) >= vertexCount {
				return TangentSpace{}, common.ArgumentError(op, "index %d out of range for %d vertices", v, vertexCount)
			}
		}

		p0, p1, p2 := vec3At(positions, tri[0]), vec3At(positions, tri[1]), vec3At(positions, tri[2])
		dp1, dp2 := p1.Sub(p0), p2.Sub(p0)

		duv1, duv2 := mgl32.Vec2{1, 1}, mgl32.Vec2{1, 1}
		if uvs != nil && len(uvs)/2 >= vertexCount {
			uv0, uv1, uv2 := vec2At(uvs, tri[0]), vec2At(uvs, tri[1]), vec2At(uvs, tri[2])
			duv1, duv2 = uv1.Sub(uv0), uv2.Sub(uv0)
		}

		r := float32(1)
		if det := duv1.X()*duv2.Y() - duv2.X()*duv1.Y(); det > 1e-8 || det < -1e-8 {
			r = 1 / det
		}
		t := dp1.Mul(duv2.Y()).Sub(dp2.Mul(duv1.Y())).Mul(r)
		b := dp2.Mul(duv1.X()).Sub(dp1.Mul(duv2.X())).Mul(r)

		for _, v := range tri {
			tangents[v] = tangents[v].Add(t)
			bitangents[v] = bitangents[v].Add(b)
		}
	}

	out := TangentSpace{
		Tangents:   make([]float32, 0, vertexCount*3),
		Bitangents: make([]float32, 0, vertexCount*3),
	}
	for v := range vertexCount {
		t, b := tangents[v], bitangents[v]
		if normals != nil && len(normals)/3 >= vertexCount {
			n := vec3At(normals, uint32(v))
			t = t.Sub(n.Mul(n.Dot(t)))
		}
		t = normalizeOr(t, mgl32.Vec3{1, 0, 0})
		b = normalizeOr(b, mgl32.Vec3{0, 1, 0})
		out.Tangents = append(out.Tangents, t[:]...)
		out.Bitangents = append(out.Bitangents, b[:]...)
	}
	return out, nil
}

// CalculateTBN computes tangent space data for every primitive that samples a normal map. Work is spread
// over pool; the results are attached serially afterwards, each primitive getting one generated buffer
// with the tangents followed by the bitangents. Primitives that already carry a BITANGENT attribute are
// left alone.
//
// Parameters:
//   - doc: a resolved document with loaded buffers
//   - pool: the worker pool computations run on, nil to compute inline
//
// Returns:
//   - error: every failed primitive's error, joined
func CalculateTBN(doc *Document, pool worker.DynamicWorkerPool) error {
	var targets []*Primitive
	for _, p := range doc.Primitives() {
		if p.NeedsTBN() && p.Accessors[AttributeBitangent] == nil {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	results := make([]TangentSpace, len(targets))
	var mu sync.Mutex
	var errs []error
	compute := func(i int) {
		defer func() {
			if r := recover(); r != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("tangent space for primitive %d panicked: %v", i, r))
				mu.Unlock()
			}
		}()
		ts, err := ComputeTBN(targets[i])
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return
		}
		results[i] = ts
	}

	if pool == nil {
		for i := range targets {
			compute(i)
		}
	} else {
		var wg sync.WaitGroup
		for i := range targets {
			wg.Add(1)
			idx := i
			pool.SubmitTask(worker.Task{
				ID: idx,
				Do: func() (any, error) {
					defer wg.Done()
					compute(idx)
					return nil, nil
				},
			})
		}
		wg.Wait()
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", doc.Filename, errors.Join(errs...))
	}

	for i, p := range targets {
		attachTBN(doc, p, fmt.Sprintf("%s#tbn%d", doc.Filename, i), results[i])
	}
	return nil
}

// attachTBN stores ts in a new generated buffer and points the primitive's TANGENT and BITANGENT
// attributes at it.
func attachTBN(doc *Document, p *Primitive, name string, ts TangentSpace) {
	data := make([]byte, 0, (len(ts.Tangents)+len(ts.Bitangents))*4)
	data = append(data, common.SliceToBytes(ts.Tangents)...)
	data = append(data, common.SliceToBytes(ts.Bitangents)...)
	buf := &Buffer{Name: name, ByteLength: len(data), Data: data}
	doc.Generated = append(doc.Generated, buf)

	half := len(data) / 2
	target := TargetArrayBuffer
	count := len(ts.Tangents) / 3
	p.Accessors[AttributeTangent] = &Accessor{
		Name:          name + ":tangent",
		ComponentType: ComponentFloat,
		Count:         count,
		Type:          TypeVec3,
		View:          &BufferView{Name: name, ByteLength: half, Target: &target, Buf: buf},
	}
	p.Accessors[AttributeBitangent] = &Accessor{
		Name:          name + ":bitangent",
		ComponentType: ComponentFloat,
		Count:         count,
		Type:          TypeVec3,
		View:          &BufferView{Name: name, ByteOffset: half, ByteLength: half, Target: &target, Buf: buf},
	}
}

func vec3At(data []float32, i uint32) mgl32.Vec3 {
	return mgl32.Vec3{data[i*3], data[i*3+1], data[i*3+2]}
}

func vec2At(data []float32, i uint32) mgl32.Vec2 {
	return mgl32.Vec2{data[i*2], data[i*2+1]}
}

func normalizeOr(v, fallback mgl32.Vec3) mgl32.Vec3 {
	if v.Len() < 1e-12 {
		return fallback
	}
	return v.Normalize()
}
