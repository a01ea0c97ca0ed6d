package scene

import (
	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Transform is the local placement of a node relative to its parent. Rotation is in radians.
type Transform struct {
	Translate mgl32.Vec3 `yaml:"translate"`
	Rotate    mgl32.Vec3 `yaml:"rotate"`
	Scale     mgl32.Vec3 `yaml:"scale"`
}

// IdentityTransform returns a transform with unit scale and no translation or rotation.
func IdentityTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix returns translate * rotate * scale.
func (t Transform) Matrix() mgl32.Mat4 {
	return common.ModelMatrix(t.Translate, t.Rotate, t.Scale)
}

// UnmarshalYAML decodes on top of the identity so an omitted scale stays at one.
func (t *Transform) UnmarshalYAML(value *yaml.Node) error {
	type plain Transform
	p := plain(IdentityTransform())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = Transform(p)
	return nil
}
