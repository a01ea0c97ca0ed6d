// directives.go defines the pre-processor directives understood in shader sources. Directives are
// single lines starting with '#' and are evaluated before a source reaches the backend compiler, so
// WGSL sources get the same variant switches GLSL has natively.
package shader

import (
	"fmt"
	"strings"
)

// DirectiveType identifies the kind of directive parsed from a source line.
type DirectiveType string

const (
	// DirectiveInclude injects a registered include at the directive site.
	//
	// Syntax: #include "name" or #include <name>
	DirectiveInclude DirectiveType = "include"

	// DirectiveDefine declares a name and an optional value for the rest of the source.
	//
	// Syntax: #define NAME [value]
	DirectiveDefine DirectiveType = "define"

	// DirectiveIfdef keeps the following lines only when NAME is defined.
	DirectiveIfdef DirectiveType = "ifdef"

	// DirectiveIfndef keeps the following lines only when NAME is not defined.
	DirectiveIfndef DirectiveType = "ifndef"

	// DirectiveElse flips the innermost conditional.
	DirectiveElse DirectiveType = "else"

	// DirectiveEndif closes the innermost conditional.
	DirectiveEndif DirectiveType = "endif"

	// DirectiveVersion is the GLSL #version line. It is kept first in the output.
	DirectiveVersion DirectiveType = "version"
)

// Directive is one parsed directive line.
type Directive struct {
	Type  DirectiveType
	Name  string
	Value string
	Line  int
	Raw   string
}

// parseDirective parses a single line. Lines that are not directives return nil and no error.
// Directives the pre-processor does not own (#extension, #pragma, #line, #if) are returned as nil so they
// pass through to the compiler.
//
// Parameters:
//   - line: the raw source line
//   - lineNo: the 1-based line number for error messages
//
// Returns:
//   - *Directive: the parsed directive, or nil if the line is not one
//   - error: an error if the directive is malformed
func parseDirective(line string, lineNo int) (*Directive, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return nil, nil
	}
	fields := strings.Fields(strings.TrimSpace(trimmed[1:]))
	if len(fields) == 0 {
		return nil, nil
	}

	d := &Directive{Type: DirectiveType(fields[0]), Line: lineNo, Raw: line}
	args := fields[1:]
	switch d.Type {
	case DirectiveInclude:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: #include takes exactly one argument", lineNo)
		}
		name := args[0]
		quoted := len(name) >= 2 && ((name[0] == '"' && name[len(name)-1] == '"') || (name[0] == '<' && name[len(name)-1] == '>'))
		if !quoted {
			return nil, fmt.Errorf("line %d: #include argument %q must be quoted", lineNo, name)
		}
		d.Name = name[1 : len(name)-1]
	case DirectiveDefine:
		if len(args) == 0 {
			return nil, fmt.Errorf("line %d: #define without a name", lineNo)
		}
		d.Name = args[0]
		d.Value = strings.Join(args[1:], " ")
	case DirectiveIfdef, DirectiveIfndef:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: #%s takes exactly one name", lineNo, d.Type)
		}
		d.Name = args[0]
	case DirectiveElse, DirectiveEndif:
		if len(args) != 0 {
			return nil, fmt.Errorf("line %d: #%s takes no arguments", lineNo, d.Type)
		}
	case DirectiveVersion:
		d.Value = strings.Join(args, " ")
	default:
		return nil, nil
	}
	return d, nil
}
