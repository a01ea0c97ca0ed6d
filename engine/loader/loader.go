package loader

import (
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	fsys fs.FS
	log  log.Log

	documents map[string]*Document
}

// Loader parses and resolves glTF documents and caches them by filename. Loading buffers, textures and
// GPU objects is a separate phase owned by the asset cache.
type Loader interface {
	// Load parses and resolves a .gltf or .glb file. A cached document is returned as is.
	//
	// Parameters:
	//   - filename: the slash separated path of the file inside the loader's file system
	//
	// Returns:
	//   - *Document: the resolved document
	//   - error: an argument error for unknown extensions or malformed documents, a not-found error if the
	//     file cannot be read, or a dangling-reference error from Resolve
	Load(filename string) (*Document, error)

	// LoadReader parses and resolves a document from r and caches it under name. Relative URIs inside the
	// document resolve against the directory of name.
	//
	// Parameters:
	//   - name: the cache key for the document
	//   - r: the reader providing the .gltf JSON or GLB bytes
	//
	// Returns:
	//   - *Document: the resolved document
	//   - error: error if reading, parsing or resolving fails
	LoadReader(name string, r io.Reader) (*Document, error)

	// Get retrieves a cached document by name. Returns nil if not found.
	Get(name string) *Document

	// Remove drops a document from the cache and reports whether it was present.
	Remove(name string) bool

	// Documents returns a copy of the document cache.
	Documents() map[string]*Document

	// FS returns the file system documents and their external URIs are read from.
	FS() fs.FS
}

var _ Loader = &loader{}

// NewLoader creates a new Loader reading from the current directory unless WithFS or WithRoot says
// otherwise.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:        sync.RWMutex{},
		documents: make(map[string]*Document),
		log:       log.NewNop(),
	}
	for _, option := range options {
		option(l)
	}
	if l.fsys == nil {
		l.fsys = os.DirFS(".")
	}
	return l
}

func (l *loader) Load(filename string) (*Document, error) {
	filename = path.Clean(filename)
	if doc := l.Get(filename); doc != nil {
		return doc, nil
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".gltf", ".glb":
	default:
		return nil, common.ArgumentError("loader.Load", "unsupported model format: %s", filename)
	}

	doc, err := ParseFile(l.fsys, filename)
	if err != nil {
		return nil, err
	}
	return l.store(filename, doc)
}

func (l *loader) LoadReader(name string, r io.Reader) (*Document, error) {
	if doc := l.Get(name); doc != nil {
		return doc, nil
	}
	doc, err := ParseReader(r, name)
	if err != nil {
		return nil, err
	}
	return l.store(name, doc)
}

func (l *loader) Get(name string) *Document {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.documents[name]
}

func (l *loader) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.documents[name]; !ok {
		return false
	}
	delete(l.documents, name)
	return true
}

func (l *loader) Documents() map[string]*Document {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Document, len(l.documents))
	for k, v := range l.documents {
		result[k] = v
	}
	return result
}

func (l *loader) FS() fs.FS {
	return l.fsys
}

// store resolves doc and caches it, keeping the first document if another goroutine stored one meanwhile.
func (l *loader) store(name string, doc *Document) (*Document, error) {
	if err := Resolve(doc); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.documents[name]; ok {
		return existing, nil
	}
	l.documents[name] = doc
	l.log.Debug("gltf document parsed",
		log.String("name", name),
		log.Int("meshes", len(doc.Meshes)),
		log.Int("buffers", len(doc.Buffers)),
		log.Int("images", len(doc.Images)),
	)
	return doc, nil
}
