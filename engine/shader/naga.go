package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/gogpu/naga"
)

// CompileSPIRV compiles WGSL source to SPIR-V and validates the result.
//
// Parameters:
//   - wgsl: the WGSL module source
//
// Returns:
//   - *Module: the validated SPIR-V module
//   - error: a retryable error if naga rejects the source, or an argument error if its output does not validate
func CompileSPIRV(wgsl string) (*Module, error) {
	data, err := naga.Compile(wgsl)
	if err != nil {
		return nil, common.ResourceError("shader.CompileSPIRV", fmt.Errorf("failed to compile shader: %w", err))
	}
	return ReadSPIRV(data)
}

// CompileStages compiles every processed stage of a WGSL shader to SPIR-V.
//
// Parameters:
//   - s: a WGSL shader
//
// Returns:
//   - map[backend.Stage]*Module: one validated module per stage
//   - error: an argument error for a GLSL shader, or the first stage's compile error
func CompileStages(s Shader) (map[backend.Stage]*Module, error) {
	if s.Language() != backend.LanguageWGSL {
		return nil, common.ArgumentError("shader.CompileStages", "shader %q is not WGSL", s.Key())
	}
	out := make(map[backend.Stage]*Module, len(s.Stages()))
	for _, stage := range s.Stages() {
		m, err := CompileSPIRV(s.Source(stage))
		if err != nil {
			return nil, fmt.Errorf("%s stage of %q: %w", stage, s.Key(), err)
		}
		out[stage] = m
	}
	return out, nil
}
