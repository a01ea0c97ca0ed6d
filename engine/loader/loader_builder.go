package loader

import (
	"io/fs"
	"os"

	"github.com/Carmen-Shannon/nucleus-go/common/log"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS is an option builder that sets the file system documents are read from.
//
// Parameters:
//   - fsys: the file system
//
// Returns:
//   - LoaderBuilderOption: a function that applies the file system option to a loader
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = fsys
	}
}

// WithRoot is an option builder that reads documents from a directory on disk.
func WithRoot(root string) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = os.DirFS(root)
	}
}

// WithLogger is an option builder that sets the logger used by the Loader.
func WithLogger(logger log.Log) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.log = logger
		}
	}
}

// WithDocument is an option builder that pre-populates the document cache. The document is resolved when
// the loader is built; a document that fails to resolve is not cached.
//
// Parameters:
//   - name: the cache key for the document
//   - doc: the parsed document
//
// Returns:
//   - LoaderBuilderOption: a function that applies the document option to a loader
func WithDocument(name string, doc *Document) LoaderBuilderOption {
	return func(l *loader) {
		if Resolve(doc) == nil {
			l.documents[name] = doc
		}
	}
}
