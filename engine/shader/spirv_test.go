package shader_test

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	opCapability uint16 = 17
	opLabel      uint16 = 248
	opReturn     uint16 = 253
)

func instruction(opcode uint16, operands ...uint32) []uint32 {
	return append([]uint32{uint32(len(operands)+1)<<16 | uint32(opcode)}, operands...)
}

func encode(order binary.AppendByteOrder, words ...[]uint32) []byte {
	var out []byte
	for _, ws := range words {
		for _, w := range ws {
			out = order.AppendUint32(out, w)
		}
	}
	return out
}

func header() []uint32 {
	return []uint32{shader.SPIRVMagic, 0x00010300, 0x000d000b, 12, 0}
}

func TestReadSPIRV(t *testing.T) {
	data := encode(binary.LittleEndian,
		header(),
		instruction(opCapability, 1),
		instruction(shader.OpFunction, 1, 2, 0, 3),
		instruction(opLabel, 4),
		instruction(opReturn),
		instruction(shader.OpFunctionEnd),
	)
	m, err := shader.ReadSPIRV(data)
	require.NoError(t, err)

	assert.Equal(t, "1.3", m.VersionString())
	assert.Equal(t, uint32(12), m.Bound)
	assert.Equal(t, 5, m.Instructions)
	assert.Equal(t, 2+5+2+1+1, m.InstructionWords)
	assert.Equal(t, 1, m.Functions())
	assert.Equal(t, data, m.Bytes())
}

func TestReadSPIRVBigEndian(t *testing.T) {
	m, err := shader.ReadSPIRV(encode(binary.BigEndian, header(), instruction(opCapability, 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Instructions)
}

func TestReadSPIRVTrailingPadding(t *testing.T) {
	m, err := shader.ReadSPIRV(encode(binary.LittleEndian, header(), instruction(opCapability, 1), []uint32{0, 0, 0}))
	require.NoError(t, err)
	assert.Len(t, m.Words, 7)
}

func TestReadSPIRVRejects(t *testing.T) {
	cases := map[string][]byte{
		"short":       {0x03, 0x02, 0x23, 0x07},
		"bad magic":   encode(binary.LittleEndian, []uint32{0xdeadbeef, 0, 0, 0, 0}),
		"partial":     append(encode(binary.LittleEndian, header()), 1, 2),
		"truncated":   encode(binary.LittleEndian, header(), []uint32{4<<16 | uint32(opCapability), 1}),
		"zero count":  encode(binary.LittleEndian, header(), []uint32{0}, instruction(opCapability, 1)),
		"no end":      encode(binary.LittleEndian, header(), instruction(shader.OpFunction, 1, 2, 0, 3)),
		"stray end":   encode(binary.LittleEndian, header(), instruction(shader.OpFunctionEnd)),
		"nested func": encode(binary.LittleEndian, header(), instruction(shader.OpFunction, 1, 2, 0, 3), instruction(shader.OpFunction, 1, 2, 0, 3), instruction(shader.OpFunctionEnd), instruction(shader.OpFunctionEnd)),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := shader.ReadSPIRV(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}
}

func TestFindSPIRV(t *testing.T) {
	data := append([]byte("log output\n"), encode(binary.LittleEndian, header())...)
	offset := shader.FindSPIRV(data)
	require.Equal(t, 11, offset)
	_, err := shader.ReadSPIRV(data[offset:])
	assert.NoError(t, err)

	assert.Equal(t, -1, shader.FindSPIRV([]byte("nothing here")))
}

func TestCompileSPIRV(t *testing.T) {
	m, err := shader.CompileSPIRV(`
@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}
`)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Functions(), 1)
	assert.Equal(t, m.Opcodes[shader.OpFunction], m.Opcodes[shader.OpFunctionEnd])
}
