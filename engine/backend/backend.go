package backend

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/nucleus-go/common/log"
)

// Version identifies a concrete GPU API and version.
type Version int

const (
	VersionUnknown Version = iota
	VersionGLES20
	VersionGLES30
	VersionGLES31
	VersionGLES32
	VersionVulkan10
	VersionVulkan11
	VersionVulkan12
)

var versionNames = map[Version]string{
	VersionGLES20:   "GLES20",
	VersionGLES30:   "GLES30",
	VersionGLES31:   "GLES31",
	VersionGLES32:   "GLES32",
	VersionVulkan10: "VULKAN10",
	VersionVulkan11: "VULKAN11",
	VersionVulkan12: "VULKAN12",
}

func (v Version) String() string {
	if n, ok := versionNames[v]; ok {
		return n
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// ParseVersion maps a configuration name such as "GLES30" to its Version, ignoring case.
func ParseVersion(name string) (Version, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for v, n := range versionNames {
		if n == upper {
			return v, nil
		}
	}
	return VersionUnknown, fmt.Errorf("unknown backend version %q", name)
}

// IsGLES reports whether the version is an OpenGL ES flavour.
func (v Version) IsGLES() bool {
	return v >= VersionGLES20 && v <= VersionGLES32
}

// IsVulkan reports whether the version is a Vulkan-class explicit API.
func (v Version) IsVulkan() bool {
	return v >= VersionVulkan10 && v <= VersionVulkan12
}

// Backend is a created GPU API instance. Calling any method other than Destroy after Destroy is a contract violation.
type Backend interface {
	// Version returns the API version this backend was created for.
	Version() Version

	// API returns the draw API the renderer and asset cache issue GPU work through.
	API() DrawAPI

	// Destroy releases the API context. Only the first call has an effect.
	Destroy() error

	// Destroyed reports whether Destroy has been called.
	Destroyed() bool
}

type backend struct {
	version   Version
	api       DrawAPI
	log       log.Log
	once      sync.Once
	destroyed atomic.Bool
}

var _ Backend = &backend{}

// NewBackend wraps a draw API as a Backend without registering it anywhere.
// Most callers go through Registry.Create, which also tracks the active backend.
//
// Parameters:
//   - version: the API version api implements
//   - api: the draw API implementation
//   - logger: the logger used for lifecycle messages, nil for the package default
//
// Returns:
//   - Backend: the new backend
func NewBackend(version Version, api DrawAPI, logger log.Log) Backend {
	if logger == nil {
		logger = log.Provide()
	}
	return &backend{
		version: version,
		api:     api,
		log:     logger.With(log.String("backend", version.String())),
	}
}

func (b *backend) Version() Version {
	return b.version
}

func (b *backend) API() DrawAPI {
	return b.api
}

func (b *backend) Destroy() error {
	b.once.Do(func() {
		b.destroyed.Store(true)
		b.api.Release()
		b.log.Info("backend destroyed")
	})
	return nil
}

func (b *backend) Destroyed() bool {
	return b.destroyed.Load()
}
