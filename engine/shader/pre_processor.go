// pre_processor.go implements the shader variant pre-processor. It scans a stage source for '#'
// directives, expands includes from a registry, evaluates #ifdef/#ifndef/#else/#endif against the
// variant defines, and emits source the backend compiler accepts.
//
// GLSL output keeps #define lines and receives the variant defines right after #version, so
// '#if' expressions the pre-processor does not evaluate still see them. WGSL has no pre-processor of
// its own: define lines are consumed and valued defines are substituted as whole words.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
)

// maxIncludeDepth bounds nested includes.
const maxIncludeDepth = 16

// Define is one variant switch, NAME or NAME=value.
type Define struct {
	Name  string
	Value string
}

// String renders the define as a GLSL directive.
func (d Define) String() string {
	if d.Value == "" {
		return "#define " + d.Name
	}
	return "#define " + d.Name + " " + d.Value
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps include names to their source text.
	includes map[string]string

	// expanded lists the includes pulled in by the most recent Process call, in source order.
	expanded []string

	words map[string]*regexp.Regexp
}

// PreProcessor turns a raw stage source plus variant defines into compilable source.
type PreProcessor interface {
	// Process pre-processes one stage source.
	//
	// Parameters:
	//   - source: the raw stage source
	//   - language: the source language, which selects how defines are emitted
	//   - defines: the variant defines, applied in order before the source's own
	//
	// Returns:
	//   - string: the processed source
	//   - error: an error if a directive is malformed, an include is unknown or recursive, or a conditional is unbalanced
	Process(source string, language backend.Language, defines []Define) (string, error)

	// Includes returns the include names expanded by the most recent Process call.
	//
	// Returns:
	//   - []string: include names in source order, each listed once
	Includes() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor resolving #include against the given registry.
//
// Parameters:
//   - includes: include name to source text; may be nil
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(includes map[string]string) PreProcessor {
	registry := make(map[string]string, len(includes))
	for k, v := range includes {
		registry[k] = v
	}
	return &preProcessor{
		includes: registry,
		words:    make(map[string]*regexp.Regexp),
	}
}

// conditional is one open #ifdef/#ifndef frame.
type conditional struct {
	parentActive bool
	taken        bool
	elseSeen     bool
	line         int
}

type processState struct {
	language backend.Language
	defines  map[string]string
	order    []string
	stack    []conditional
	version  string
	out      []string
}

func (s *processState) active() bool {
	if len(s.stack) == 0 {
		return true
	}
	top := s.stack[len(s.stack)-1]
	return top.parentActive && top.taken
}

func (s *processState) define(name, value string) {
	if _, ok := s.defines[name]; !ok {
		s.order = append(s.order, name)
	}
	s.defines[name] = value
}

func (p *preProcessor) Process(source string, language backend.Language, defines []Define) (string, error) {
	p.expanded = p.expanded[:0]
	s := &processState{language: language, defines: make(map[string]string)}
	for _, d := range defines {
		if d.Name == "" {
			return "", fmt.Errorf("variant define without a name")
		}
		s.define(d.Name, d.Value)
	}

	if err := p.processSource(s, source, nil); err != nil {
		return "", err
	}
	if len(s.stack) > 0 {
		return "", fmt.Errorf("line %d: conditional is never closed with #endif", s.stack[len(s.stack)-1].line)
	}

	if language != backend.LanguageGLSL {
		return strings.Join(s.out, "\n"), nil
	}
	header := make([]string, 0, len(defines)+1)
	if s.version != "" {
		header = append(header, s.version)
	}
	for _, d := range defines {
		header = append(header, d.String())
	}
	return strings.Join(append(header, s.out...), "\n"), nil
}

func (p *preProcessor) processSource(s *processState, source string, chain []string) error {
	where := func(line int) string {
		if len(chain) == 0 {
			return fmt.Sprintf("line %d", line)
		}
		return fmt.Sprintf("%s line %d", chain[len(chain)-1], line)
	}

	for i, line := range strings.Split(source, "\n") {
		d, err := parseDirective(line, i+1)
		if err != nil {
			if len(chain) > 0 {
				return fmt.Errorf("%s: %w", chain[len(chain)-1], err)
			}
			return err
		}
		if d == nil {
			if s.active() {
				s.out = append(s.out, p.substitute(s, line))
			}
			continue
		}

		switch d.Type {
		case DirectiveIfdef, DirectiveIfndef:
			_, defined := s.defines[d.Name]
			s.stack = append(s.stack, conditional{
				parentActive: s.active(),
				taken:        defined == (d.Type == DirectiveIfdef),
				line:         d.Line,
			})
		case DirectiveElse:
			if len(s.stack) == 0 {
				return fmt.Errorf("%s: #else without #ifdef", where(d.Line))
			}
			top := &s.stack[len(s.stack)-1]
			if top.elseSeen {
				return fmt.Errorf("%s: second #else in one conditional", where(d.Line))
			}
			top.elseSeen, top.taken = true, !top.taken
		case DirectiveEndif:
			if len(s.stack) == 0 {
				return fmt.Errorf("%s: #endif without #ifdef", where(d.Line))
			}
			s.stack = s.stack[:len(s.stack)-1]
		default:
			if !s.active() {
				continue
			}
			if err := p.apply(s, d, chain, where); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *preProcessor) apply(s *processState, d *Directive, chain []string, where func(int) string) error {
	switch d.Type {
	case DirectiveVersion:
		if s.language == backend.LanguageGLSL && s.version == "" {
			s.version = strings.TrimSpace(d.Raw)
			return nil
		}
		s.out = append(s.out, d.Raw)
	case DirectiveDefine:
		s.define(d.Name, d.Value)
		if s.language == backend.LanguageGLSL {
			s.out = append(s.out, d.Raw)
		}
	case DirectiveInclude:
		src, ok := p.includes[d.Name]
		if !ok {
			return fmt.Errorf("%s: unknown include %q", where(d.Line), d.Name)
		}
		if slices.Contains(chain, d.Name) {
			return fmt.Errorf("%s: include %q includes itself", where(d.Line), d.Name)
		}
		if len(chain) >= maxIncludeDepth {
			return fmt.Errorf("%s: includes nested deeper than %d", where(d.Line), maxIncludeDepth)
		}
		if !slices.Contains(p.expanded, d.Name) {
			p.expanded = append(p.expanded, d.Name)
		}
		return p.processSource(s, src, append(chain, d.Name))
	}
	return nil
}

// substitute replaces valued defines as whole words in WGSL lines.
func (p *preProcessor) substitute(s *processState, line string) string {
	if s.language != backend.LanguageWGSL {
		return line
	}
	for _, name := range s.order {
		value := s.defines[name]
		if value == "" || !strings.Contains(line, name) {
			continue
		}
		re, ok := p.words[name]
		if !ok {
			re = regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
			p.words[name] = re
		}
		line = re.ReplaceAllLiteralString(line, value)
	}
	return line
}

func (p *preProcessor) Includes() []string {
	return p.expanded
}
