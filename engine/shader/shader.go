package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/cespare/xxhash/v2"
)

// shader is the implementation of the Shader interface.
// It holds the processed stage sources and the fixed-function flags baked into its pipeline.
type shader struct {
	key         string
	language    backend.Language
	raw         map[backend.Stage]string
	sources     map[backend.Stage]string
	entryPoints map[backend.Stage]string
	defines     []Define
	includes    map[string]string
	expanded    []string
	mode        backend.DrawMode
	depth       bool
	blend       bool

	pp  PreProcessor
	err error
}

// Shader is a processed, backend-ready program description. Its Key is the cache identity used by
// the asset cache: two shaders with equal keys share one compiled pipeline.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	// When no key was given it is derived from the processed sources and pipeline flags.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Language returns the source language of every stage.
	//
	// Returns:
	//   - backend.Language: GLSL or WGSL
	Language() backend.Language

	// Source returns the processed source of one stage.
	//
	// Parameters:
	//   - stage: the pipeline stage
	//
	// Returns:
	//   - string: the processed source, or "" if the stage is absent
	Source(stage backend.Stage) string

	// Stages returns the stages this shader provides, in pipeline order.
	//
	// Returns:
	//   - []backend.Stage: the stages present
	Stages() []backend.Stage

	// Defines returns the variant defines the sources were processed with.
	//
	// Returns:
	//   - []Define: the defines in declaration order
	Defines() []Define

	// Includes returns the include names the pre-processor expanded across all stages.
	//
	// Returns:
	//   - []string: include names, each listed once
	Includes() []string

	// Mode returns the primitive topology the pipeline is built for.
	//
	// Returns:
	//   - backend.DrawMode: the draw mode
	Mode() backend.DrawMode

	// ProgramSources returns the description a backend compiles and links.
	//
	// Returns:
	//   - backend.ProgramSources: key, language, stage sources, entry points and pipeline flags
	ProgramSources() backend.ProgramSources
}

var _ Shader = &shader{}

// NewShader creates a new Shader with all specified options applied. Stage sources are run through the
// pre-processor with the variant defines once every option has been applied.
//
// Parameters:
//   - language: the source language of every stage
//   - options: functional options setting stages, defines, includes, key and pipeline flags
//
// Returns:
//   - Shader: the processed shader
//   - error: an error if no vertex stage is given, a stage file cannot be read, or pre-processing fails
func NewShader(language backend.Language, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		language:    language,
		raw:         make(map[backend.Stage]string),
		sources:     make(map[backend.Stage]string),
		entryPoints: make(map[backend.Stage]string),
		includes:    make(map[string]string),
		mode:        backend.DrawModeTriangles,
		depth:       true,
	}
	for _, option := range options {
		option(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	if _, ok := s.raw[backend.StageVertex]; !ok {
		if _, compute := s.raw[backend.StageCompute]; !compute {
			return nil, fmt.Errorf("shader %q: a vertex stage is required", s.key)
		}
	}

	s.pp = NewPreProcessor(s.includes)
	var includes []string
	for _, stage := range s.Stages() {
		src, err := s.pp.Process(s.raw[stage], s.language, s.defines)
		if err != nil {
			return nil, fmt.Errorf("shader %q %s stage: %w", s.key, stage, err)
		}
		s.sources[stage] = src
		for _, name := range s.pp.Includes() {
			if !slices.Contains(includes, name) {
				includes = append(includes, name)
			}
		}
	}
	s.includes = nil
	s.expanded = includes

	if s.key == "" {
		s.key = s.hashKey()
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Language() backend.Language {
	return s.language
}

func (s *shader) Source(stage backend.Stage) string {
	return s.sources[stage]
}

func (s *shader) Stages() []backend.Stage {
	stages := make([]backend.Stage, 0, len(s.raw))
	for _, stage := range []backend.Stage{backend.StageVertex, backend.StageFragment, backend.StageCompute} {
		if _, ok := s.raw[stage]; ok {
			stages = append(stages, stage)
		}
	}
	return stages
}

func (s *shader) Defines() []Define {
	return s.defines
}

func (s *shader) Includes() []string {
	return s.expanded
}

func (s *shader) Mode() backend.DrawMode {
	return s.mode
}

func (s *shader) ProgramSources() backend.ProgramSources {
	stages := make(map[backend.Stage]string, len(s.sources))
	for k, v := range s.sources {
		stages[k] = v
	}
	entries := make(map[backend.Stage]string, len(s.entryPoints))
	for k, v := range s.entryPoints {
		entries[k] = v
	}
	return backend.ProgramSources{
		Key:         s.key,
		Language:    s.language,
		Stages:      stages,
		EntryPoints: entries,
		Mode:        s.mode,
		Depth:       s.depth,
		Blend:       s.blend,
	}
}

// hashKey derives a stable key from everything that changes the compiled program.
func (s *shader) hashKey() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(s.language)))
	for _, stage := range s.Stages() {
		b.WriteString("\x00")
		b.WriteString(stage.String())
		b.WriteString("\x00")
		b.WriteString(s.sources[stage])
		b.WriteString("\x00")
		b.WriteString(s.entryPoints[stage])
	}
	fmt.Fprintf(&b, "\x00%s\x00%t\x00%t", s.mode, s.depth, s.blend)
	return fmt.Sprintf("shader-%016x", xxhash.Sum64String(b.String()))
}
