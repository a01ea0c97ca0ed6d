package shader

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/nucleus-go/common"
)

const (
	// SPIRVMagic is the first word of every SPIR-V module.
	SPIRVMagic uint32 = 0x07230203

	// OpFunction opens a function body.
	OpFunction uint16 = 54

	// OpFunctionEnd closes a function body.
	OpFunctionEnd uint16 = 56

	spirvHeaderWords = 5
)

// Module is a validated SPIR-V binary.
type Module struct {
	// Version is the encoded header version, 0x00MMmm00.
	Version   uint32
	Generator uint32
	Bound     uint32

	// Words holds the header and the instruction stream, trailing padding removed.
	Words []uint32

	InstructionWords int
	Instructions     int

	// Opcodes counts instructions per opcode.
	Opcodes map[uint16]int
}

// VersionString renders the header version as "major.minor".
func (m *Module) VersionString() string {
	return fmt.Sprintf("%d.%d", (m.Version>>16)&0xff, (m.Version>>8)&0xff)
}

// Functions returns the number of function bodies.
func (m *Module) Functions() int {
	return m.Opcodes[OpFunction]
}

// Bytes returns the module as little-endian bytes.
func (m *Module) Bytes() []byte {
	out := make([]byte, len(m.Words)*4)
	for i, w := range m.Words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// FindSPIRV scans data for the little-endian magic word, for binaries embedded in a larger stream.
//
// Parameters:
//   - data: the bytes to search
//
// Returns:
//   - int: the byte offset of the magic word, or -1 if absent
func FindSPIRV(data []byte) int {
	for i := 0; i+4 <= len(data); i++ {
		if binary.LittleEndian.Uint32(data[i:]) == SPIRVMagic {
			return i
		}
	}
	return -1
}

// ReadSPIRV decodes and validates a SPIR-V binary. Either byte order is accepted.
// Instruction words carry the opcode in the low 16 bits and the word count in the high 16 bits.
// A zero word ends the stream only when every remaining word is zero padding.
//
// Parameters:
//   - data: the binary, starting at the magic word
//
// Returns:
//   - *Module: the decoded module
//   - error: an argument error for bad magic, truncation, a zero word count or unbalanced functions
func ReadSPIRV(data []byte) (*Module, error) {
	const op = "shader.ReadSPIRV"
	if len(data) < spirvHeaderWords*4 {
		return nil, common.ArgumentError(op, "%d bytes is shorter than the header", len(data))
	}
	if len(data)%4 != 0 {
		return nil, common.ArgumentError(op, "length %d is not a whole number of words", len(data))
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch {
	case binary.LittleEndian.Uint32(data) == SPIRVMagic:
	case binary.BigEndian.Uint32(data) == SPIRVMagic:
		order = binary.BigEndian
	default:
		return nil, common.ArgumentError(op, "bad magic 0x%08x", binary.LittleEndian.Uint32(data))
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[i*4:])
	}

	m := &Module{
		Version:   words[1],
		Generator: words[2],
		Bound:     words[3],
		Opcodes:   make(map[uint16]int),
	}

	offset, open := spirvHeaderWords, 0
	for offset < len(words) {
		w := words[offset]
		count, opcode := int(w>>16), uint16(w&0xffff)
		if count == 0 {
			if !zeroPadding(words[offset:]) {
				return nil, common.ArgumentError(op, "zero word count at word %d", offset)
			}
			break
		}
		if offset+count > len(words) {
			return nil, common.ArgumentError(op, "instruction %d at word %d needs %d words, %d remain", opcode, offset, count, len(words)-offset)
		}

		switch opcode {
		case OpFunction:
			if open > 0 {
				return nil, common.ArgumentError(op, "OpFunction at word %d inside another function", offset)
			}
			open++
		case OpFunctionEnd:
			if open == 0 {
				return nil, common.ArgumentError(op, "OpFunctionEnd at word %d without OpFunction", offset)
			}
			open--
		}
		m.Opcodes[opcode]++
		m.Instructions++
		m.InstructionWords += count
		offset += count
	}

	if m.Opcodes[OpFunction] != m.Opcodes[OpFunctionEnd] {
		return nil, common.ArgumentError(op, "%d OpFunction but %d OpFunctionEnd", m.Opcodes[OpFunction], m.Opcodes[OpFunctionEnd])
	}
	m.Words = words[:spirvHeaderWords+m.InstructionWords]
	return m, nil
}

// ReadSPIRVFile reads and validates a SPIR-V file.
func ReadSPIRVFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.ResourceError("shader.ReadSPIRVFile", err)
	}
	return ReadSPIRV(data)
}

func zeroPadding(words []uint32) bool {
	for _, w := range words {
		if w != 0 {
			return false
		}
	}
	return true
}
