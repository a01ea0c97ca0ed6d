package shader

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
)

type ShaderBuilderOption func(*shader)

// WithKey sets an explicit cache key instead of the derived hash.
//
// Parameters:
//   - key: the cache key
//
// Returns:
//   - ShaderBuilderOption: a function that sets the shader key
func WithKey(key string) ShaderBuilderOption {
	return func(s *shader) {
		s.key = key
	}
}

// WithStage sets the raw source of one stage.
//
// Parameters:
//   - stage: the pipeline stage
//   - source: the unprocessed stage source
//
// Returns:
//   - ShaderBuilderOption: a function that sets the stage source
func WithStage(stage backend.Stage, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.raw[stage] = source
	}
}

// WithStageFile reads the raw source of one stage from disk.
// A read failure is reported by NewShader.
//
// Parameters:
//   - stage: the pipeline stage
//   - path: the file holding the stage source
//
// Returns:
//   - ShaderBuilderOption: a function that loads the stage source
func WithStageFile(stage backend.Stage, path string) ShaderBuilderOption {
	return func(s *shader) {
		data, err := os.ReadFile(path)
		if err != nil {
			s.err = fmt.Errorf("shader: failed to read %s stage source %q: %w", stage, path, err)
			return
		}
		s.raw[stage] = string(data)
	}
}

// WithEntryPoint names the entry function of one stage. GLSL ignores it.
//
// Parameters:
//   - stage: the pipeline stage
//   - name: the entry function name
//
// Returns:
//   - ShaderBuilderOption: a function that sets the entry point
func WithEntryPoint(stage backend.Stage, name string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoints[stage] = name
	}
}

// WithDefine adds a variant define. Defines are part of the derived key.
//
// Parameters:
//   - name: the define name
//   - value: the define value; "" declares the name only
//
// Returns:
//   - ShaderBuilderOption: a function that appends the define
func WithDefine(name, value string) ShaderBuilderOption {
	return func(s *shader) {
		s.defines = append(s.defines, Define{Name: name, Value: value})
	}
}

// WithInclude registers an include available to #include in every stage.
//
// Parameters:
//   - name: the include name as written between the quotes
//   - source: the include text
//
// Returns:
//   - ShaderBuilderOption: a function that registers the include
func WithInclude(name, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.includes[name] = source
	}
}

// WithIncludeFS registers every file matching pattern in fsys as an include named by its path.
func WithIncludeFS(fsys fs.FS, pattern string) ShaderBuilderOption {
	return func(s *shader) {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			s.err = fmt.Errorf("shader: bad include pattern %q: %w", pattern, err)
			return
		}
		for _, name := range matches {
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				s.err = fmt.Errorf("shader: failed to read include %q: %w", name, err)
				return
			}
			s.includes[name] = string(data)
		}
	}
}

// WithMode sets the primitive topology. Defaults to triangles.
func WithMode(mode backend.DrawMode) ShaderBuilderOption {
	return func(s *shader) {
		s.mode = mode
	}
}

// WithDepth toggles depth testing. Enabled by default.
func WithDepth(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.depth = enabled
	}
}

// WithBlend toggles alpha blending.
func WithBlend(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.blend = enabled
	}
}
