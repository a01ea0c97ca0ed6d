package component

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
)

// ComponentBuffer stores a fixed number of entities with the same number of floats each, entity after
// entity. Each component is expected to write only its own entity range, so the buffer does no locking.
type ComponentBuffer interface {
	// EntityCount returns the number of entities.
	EntityCount() int

	// SizePerEntity returns the number of floats per entity.
	SizePerEntity() int

	// SizeInBytes returns EntityCount * SizePerEntity * 4.
	SizeInBytes() int

	// Get copies the floats of one entity into dest.
	//
	// Parameters:
	//   - entity: the entity index in [0, EntityCount)
	//   - dest: receives SizePerEntity floats
	//
	// Returns:
	//   - error: an argument error if entity is out of range or dest is too short
	Get(entity int, dest []float32) error

	// Put copies count floats from src[srcOffset:] into the entity starting at offset.
	//
	// Parameters:
	//   - entity: the entity index in [0, EntityCount)
	//   - offset: the first float of the entity to write, in [0, SizePerEntity)
	//   - src: the source floats
	//   - srcOffset: the first float of src to read
	//   - count: the number of floats; offset+count must not exceed SizePerEntity
	//
	// Returns:
	//   - error: an argument error for any range violation; nothing is written in that case
	Put(entity, offset int, src []float32, srcOffset, count int) error

	// Floats returns the backing storage.
	Floats() []float32
}

type cpuBuffer struct {
	entityCount   int
	sizePerEntity int
	data          []float32
}

var _ ComponentBuffer = &cpuBuffer{}

// NewComponentBuffer creates a CPU-backed buffer.
//
// Parameters:
//   - entityCount: number of entities, at least 1
//   - sizePerEntity: floats per entity, at least 1
//
// Returns:
//   - ComponentBuffer: the zeroed buffer
//   - error: an argument error for non-positive sizes
func NewComponentBuffer(entityCount, sizePerEntity int) (ComponentBuffer, error) {
	if entityCount <= 0 || sizePerEntity <= 0 {
		return nil, common.ArgumentError("component.NewComponentBuffer",
			"entity count and size per entity must be positive, got %d x %d", entityCount, sizePerEntity)
	}
	return &cpuBuffer{
		entityCount:   entityCount,
		sizePerEntity: sizePerEntity,
		data:          make([]float32, entityCount*sizePerEntity),
	}, nil
}

func (b *cpuBuffer) EntityCount() int {
	return b.entityCount
}

func (b *cpuBuffer) SizePerEntity() int {
	return b.sizePerEntity
}

func (b *cpuBuffer) SizeInBytes() int {
	return b.entityCount * b.sizePerEntity * 4
}

func (b *cpuBuffer) Floats() []float32 {
	return b.data
}

func (b *cpuBuffer) Get(entity int, dest []float32) error {
	const op = "component.Get"
	if entity < 0 || entity >= b.entityCount {
		return common.ArgumentError(op, "entity %d outside [0, %d)", entity, b.entityCount)
	}
	if len(dest) < b.sizePerEntity {
		return common.ArgumentError(op, "destination holds %d floats, need %d", len(dest), b.sizePerEntity)
	}
	start := entity * b.sizePerEntity
	copy(dest, b.data[start:start+b.sizePerEntity])
	return nil
}

func (b *cpuBuffer) Put(entity, offset int, src []float32, srcOffset, count int) error {
	const op = "component.Put"
	switch {
	case entity < 0 || entity >= b.entityCount:
		return common.ArgumentError(op, "entity %d outside [0, %d)", entity, b.entityCount)
	case offset < 0 || offset >= b.sizePerEntity:
		return common.ArgumentError(op, "offset %d outside [0, %d)", offset, b.sizePerEntity)
	case count < 0 || offset+count > b.sizePerEntity:
		return common.ArgumentError(op, "%d floats at offset %d overflow entity size %d", count, offset, b.sizePerEntity)
	case srcOffset < 0 || srcOffset+count > len(src):
		return common.ArgumentError(op, "source range [%d, %d) outside %d floats", srcOffset, srcOffset+count, len(src))
	}
	start := entity*b.sizePerEntity + offset
	copy(b.data[start:start+count], src[srcOffset:srcOffset+count])
	return nil
}

// NativeComponentBuffer is a ComponentBuffer mirrored into a GPU buffer object. Writes go to the CPU copy
// and are uploaded by Flush on the render goroutine.
type NativeComponentBuffer struct {
	ComponentBuffer

	name  uint32
	dirty atomic.Bool
}

// NewNativeComponentBuffer creates the CPU copy and allocates its buffer object.
//
// Parameters:
//   - api: the draw API of the current context
//   - entityCount: number of entities, at least 1
//   - sizePerEntity: floats per entity, at least 1
//
// Returns:
//   - *NativeComponentBuffer: the buffer, marked dirty so the first Flush uploads it
//   - error: an argument error for non-positive sizes or a resource error from the backend
func NewNativeComponentBuffer(api backend.DrawAPI, entityCount, sizePerEntity int) (*NativeComponentBuffer, error) {
	cpu, err := NewComponentBuffer(entityCount, sizePerEntity)
	if err != nil {
		return nil, err
	}
	names, err := api.CreateBufferNames(1)
	if err != nil {
		return nil, common.ResourceError("component.NewNativeComponentBuffer", err)
	}
	b := &NativeComponentBuffer{ComponentBuffer: cpu, name: names[0]}
	b.dirty.Store(true)
	return b, nil
}

// Name returns the buffer object name.
func (b *NativeComponentBuffer) Name() uint32 {
	return b.name
}

// Put writes to the CPU copy and marks the buffer for upload.
func (b *NativeComponentBuffer) Put(entity, offset int, src []float32, srcOffset, count int) error {
	if err := b.ComponentBuffer.Put(entity, offset, src, srcOffset, count); err != nil {
		return err
	}
	b.dirty.Store(true)
	return nil
}

// Dirty reports whether the CPU copy changed since the last Flush.
func (b *NativeComponentBuffer) Dirty() bool {
	return b.dirty.Load()
}

// Flush uploads the CPU copy if it changed.
//
// Parameters:
//   - api: the draw API of the current context
//
// Returns:
//   - error: a resource error from the backend; the buffer stays dirty in that case
func (b *NativeComponentBuffer) Flush(api backend.DrawAPI) error {
	if !b.dirty.Swap(false) {
		return nil
	}
	if err := api.BufferData(b.name, backend.TargetArrayBuffer, common.SliceToBytes(b.Floats())); err != nil {
		b.dirty.Store(true)
		return common.ResourceError("component.Flush", err)
	}
	return nil
}

// Release deletes the buffer object. The CPU copy stays usable.
func (b *NativeComponentBuffer) Release(api backend.DrawAPI) {
	if b.name != 0 {
		api.DeleteBuffers([]uint32{b.name})
		b.name = 0
	}
}
