package loader

import (
	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
)

// Slot names the role a texture plays in a material.
type Slot string

const (
	SlotBaseColor         Slot = "baseColor"
	SlotNormal            Slot = "normal"
	SlotMetallicRoughness Slot = "metallicRoughness"
	SlotOcclusion         Slot = "occlusion"
	SlotEmissive          Slot = "emissive"
)

// TextureSlot describes how one material texture is uploaded.
type TextureSlot struct {
	Slot       Slot
	Texture    *Texture
	TexCoord   int
	Format     common.ImageFormat
	ColorModel common.ColorModel
	Parameters texture.Parameters
}

// Image returns the image the slot samples.
func (s TextureSlot) Image() *Image {
	return s.Texture.Image
}

// TextureSlots lists the textures of a resolved material with the format each is uploaded in. Color
// textures are sRGB; data textures are linear. Metallic-roughness is read from the green and blue
// channels, so unless occlusion shares its image it is uploaded as RG and swizzled back into place.
//
// Parameters:
//   - m: a resolved material
//
// Returns:
//   - []TextureSlot: one entry per referenced texture that has an image
func TextureSlots(m *Material) []TextureSlot {
	var slots []TextureSlot
	add := func(slot Slot, info *TextureInfo, format common.ImageFormat, model common.ColorModel) *TextureSlot {
		if info == nil || info.Ref == nil || info.Ref.Image == nil {
			return nil
		}
		slots = append(slots, TextureSlot{
			Slot:       slot,
			Texture:    info.Ref,
			TexCoord:   info.TexCoord,
			Format:     format,
			ColorModel: model,
			Parameters: SamplerParameters(info.Ref.SamplerRef),
		})
		return &slots[len(slots)-1]
	}

	var mrInfo *TextureInfo
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		add(SlotBaseColor, pbr.BaseColorTexture, common.ImageFormatRGBA, common.ColorModelSRGB)
		mrInfo = pbr.MetallicRoughnessTexture
	}
	if m.NormalTexture != nil {
		add(SlotNormal, &m.NormalTexture.TextureInfo, common.ImageFormatRGB, common.ColorModelLinear)
	}

	shared := mrInfo != nil && m.OcclusionTexture != nil && sameImage(mrInfo, &m.OcclusionTexture.TextureInfo)
	if shared {
		add(SlotMetallicRoughness, mrInfo, common.ImageFormatRGB, common.ColorModelLinear)
		add(SlotOcclusion, &m.OcclusionTexture.TextureInfo, common.ImageFormatRGB, common.ColorModelLinear)
	} else {
		if s := add(SlotMetallicRoughness, mrInfo, common.ImageFormatRG, common.ColorModelLinear); s != nil {
			s.Parameters = s.Parameters.WithSwizzle(backend.ChannelRed, backend.ChannelRed, backend.ChannelGreen, backend.ChannelAlpha)
		}
		if m.OcclusionTexture != nil {
			add(SlotOcclusion, &m.OcclusionTexture.TextureInfo, common.ImageFormatR, common.ColorModelLinear)
		}
	}
	add(SlotEmissive, m.EmissiveTexture, common.ImageFormatRGB, common.ColorModelSRGB)
	return slots
}

// SamplerParameters maps a glTF sampler to texture parameters. Unset filters are linear and unset wraps
// repeat, as glTF viewers commonly assume.
func SamplerParameters(s *Sampler) texture.Parameters {
	p := texture.Parameters{
		MinFilter: backend.FilterLinear,
		MagFilter: backend.FilterLinear,
		WrapS:     backend.WrapRepeat,
		WrapT:     backend.WrapRepeat,
	}
	if s == nil {
		return p
	}
	if s.MinFilter != nil {
		p.MinFilter = mapFilter(*s.MinFilter)
	}
	if s.MagFilter != nil {
		// magnification has no mip levels
		if f := mapFilter(*s.MagFilter); !f.UsesMipmaps() {
			p.MagFilter = f
		}
	}
	if s.WrapS != nil {
		p.WrapS = mapWrap(*s.WrapS)
	}
	if s.WrapT != nil {
		p.WrapT = mapWrap(*s.WrapT)
	}
	return p
}

func mapFilter(f int) backend.TexFilter {
	switch f {
	case FilterNearest:
		return backend.FilterNearest
	case FilterNearestMipmapNearest:
		return backend.FilterNearestMipmapNearest
	case FilterLinearMipmapNearest:
		return backend.FilterLinearMipmapNearest
	case FilterNearestMipmapLinear:
		return backend.FilterNearestMipmapLinear
	case FilterLinearMipmapLinear:
		return backend.FilterLinearMipmapLinear
	default:
		return backend.FilterLinear
	}
}

func mapWrap(w int) backend.TexWrap {
	switch w {
	case WrapClampToEdge:
		return backend.WrapClamp
	case WrapMirroredRepeat:
		return backend.WrapMirroredRepeat
	default:
		return backend.WrapRepeat
	}
}

func sameImage(a, b *TextureInfo) bool {
	if a.Ref == nil || b.Ref == nil {
		return false
	}
	return a.Ref.Image != nil && a.Ref.Image == b.Ref.Image
}
