package texture

import (
	"path"
	"path/filepath"
	"strings"
)

// IDPrefix marks an external reference that names another texture instead of an image.
const IDPrefix = "@"

// ExternalReference is the source of a texture image: a path relative to the asset root, or "@id" to share
// the texture registered under id.
type ExternalReference string

// IsIDReference reports whether r names another texture.
func (r ExternalReference) IsIDReference() bool {
	return strings.HasPrefix(string(r), IDPrefix)
}

// ID returns the referenced texture id, or "" when r is not an id-reference.
func (r ExternalReference) ID() string {
	if !r.IsIDReference() {
		return ""
	}
	return strings.TrimPrefix(string(r), IDPrefix)
}

// Source returns the image path with forward slashes, or "" for an id-reference.
func (r ExternalReference) Source() string {
	if r.IsIDReference() {
		return ""
	}
	return path.Clean(filepath.ToSlash(string(r)))
}

// Empty reports whether no reference is set.
func (r ExternalReference) Empty() bool {
	return strings.TrimSpace(string(r)) == ""
}

// Resolve joins the source to root unless it is already absolute.
func (r ExternalReference) Resolve(root string) string {
	src := filepath.FromSlash(r.Source())
	if root == "" || filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(root, src)
}
