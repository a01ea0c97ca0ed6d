package texture

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"gopkg.in/yaml.v3"
)

// Parameters are the sampling parameters of a texture. In descriptors they are written either as the list
// [min, mag, wrapS, wrapT] or as a mapping with those keys.
type Parameters backend.TexParameters

var filterNames = map[string]backend.TexFilter{
	"NEAREST":                backend.FilterNearest,
	"LINEAR":                 backend.FilterLinear,
	"NEAREST_MIPMAP_NEAREST": backend.FilterNearestMipmapNearest,
	"LINEAR_MIPMAP_NEAREST":  backend.FilterLinearMipmapNearest,
	"NEAREST_MIPMAP_LINEAR":  backend.FilterNearestMipmapLinear,
	"LINEAR_MIPMAP_LINEAR":   backend.FilterLinearMipmapLinear,
}

var wrapNames = map[string]backend.TexWrap{
	"CLAMP":           backend.WrapClamp,
	"CLAMP_TO_EDGE":   backend.WrapClamp,
	"REPEAT":          backend.WrapRepeat,
	"MIRRORED_REPEAT": backend.WrapMirroredRepeat,
}

var channelNames = map[string]backend.Channel{
	"IDENTITY": backend.ChannelIdentity,
	"R":        backend.ChannelRed,
	"G":        backend.ChannelGreen,
	"B":        backend.ChannelBlue,
	"A":        backend.ChannelAlpha,
	"ZERO":     backend.ChannelZero,
	"ONE":      backend.ChannelOne,
}

// DefaultParameters returns nearest filtering with clamped coordinates.
func DefaultParameters() Parameters {
	return Parameters{
		MinFilter: backend.FilterNearest,
		MagFilter: backend.FilterNearest,
		WrapS:     backend.WrapClamp,
		WrapT:     backend.WrapClamp,
	}
}

// NewParameters builds parameters from descriptor names.
//
// Parameters:
//   - min: the minification filter, for example "LINEAR_MIPMAP_LINEAR"
//   - mag: the magnification filter
//   - wrapS: the horizontal wrap mode, for example "REPEAT"
//   - wrapT: the vertical wrap mode
//
// Returns:
//   - Parameters: the parsed parameters
//   - error: an argument error naming the first unknown or invalid value
func NewParameters(min, mag, wrapS, wrapT string) (Parameters, error) {
	var p Parameters
	var ok bool
	if p.MinFilter, ok = filterNames[strings.ToUpper(min)]; !ok {
		return p, common.ArgumentError("texture.NewParameters", "unknown min filter %q", min)
	}
	if p.MagFilter, ok = filterNames[strings.ToUpper(mag)]; !ok {
		return p, common.ArgumentError("texture.NewParameters", "unknown mag filter %q", mag)
	}
	if p.WrapS, ok = wrapNames[strings.ToUpper(wrapS)]; !ok {
		return p, common.ArgumentError("texture.NewParameters", "unknown wrap mode %q", wrapS)
	}
	if p.WrapT, ok = wrapNames[strings.ToUpper(wrapT)]; !ok {
		return p, common.ArgumentError("texture.NewParameters", "unknown wrap mode %q", wrapT)
	}
	return p, p.Validate()
}

// Validate checks the combination of values. Magnification never samples a mip chain.
func (p Parameters) Validate() error {
	if p.MinFilter < backend.FilterNearest || p.MinFilter > backend.FilterLinearMipmapLinear {
		return common.ArgumentError("texture.Parameters", "invalid min filter %d", p.MinFilter)
	}
	if p.MagFilter != backend.FilterNearest && p.MagFilter != backend.FilterLinear {
		return common.ArgumentError("texture.Parameters", "invalid mag filter %d", p.MagFilter)
	}
	for _, w := range []backend.TexWrap{p.WrapS, p.WrapT} {
		if w < backend.WrapClamp || w > backend.WrapMirroredRepeat {
			return common.ArgumentError("texture.Parameters", "invalid wrap mode %d", w)
		}
	}
	for _, c := range p.Swizzle {
		if c < backend.ChannelIdentity || c > backend.ChannelOne {
			return common.ArgumentError("texture.Parameters", "invalid swizzle channel %d", c)
		}
	}
	return nil
}

// UsesMipmaps reports whether the min filter needs a mip chain.
func (p Parameters) UsesMipmaps() bool {
	return p.MinFilter.UsesMipmaps()
}

// WithSwizzle returns a copy of p reading channels r, g, b and a from the given sources.
func (p Parameters) WithSwizzle(r, g, b, a backend.Channel) Parameters {
	p.Swizzle = [4]backend.Channel{r, g, b, a}
	return p
}

// TexParameters converts p to the backend type.
func (p Parameters) TexParameters() backend.TexParameters {
	return backend.TexParameters(p)
}

func (p *Parameters) UnmarshalYAML(value *yaml.Node) error {
	var fields struct {
		Min     string   `yaml:"min"`
		Mag     string   `yaml:"mag"`
		WrapS   string   `yaml:"wrapS"`
		WrapT   string   `yaml:"wrapT"`
		Swizzle []string `yaml:"swizzle"`
	}
	switch value.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		if len(names) != 4 {
			return fmt.Errorf("line %d: texParameters needs 4 values, got %d", value.Line, len(names))
		}
		fields.Min, fields.Mag, fields.WrapS, fields.WrapT = names[0], names[1], names[2], names[3]
	case yaml.MappingNode:
		fields.Min, fields.Mag, fields.WrapS, fields.WrapT = "NEAREST", "NEAREST", "CLAMP", "CLAMP"
		if err := value.Decode(&fields); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: texParameters must be a list or a mapping", value.Line)
	}

	parsed, err := NewParameters(fields.Min, fields.Mag, fields.WrapS, fields.WrapT)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	if len(fields.Swizzle) > 0 {
		if len(fields.Swizzle) != 4 {
			return fmt.Errorf("line %d: swizzle needs 4 channels, got %d", value.Line, len(fields.Swizzle))
		}
		for i, name := range fields.Swizzle {
			c, ok := channelNames[strings.ToUpper(name)]
			if !ok {
				return fmt.Errorf("line %d: unknown swizzle channel %q", value.Line, name)
			}
			parsed.Swizzle[i] = c
		}
	}
	*p = parsed
	return nil
}
