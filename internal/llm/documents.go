package llm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// ErrDocumentNotFound is returned when a document reference does not resolve.
var ErrDocumentNotFound = errors.New("document not found")

// maxDocumentSize bounds what is read into memory for one inference call.
const maxDocumentSize = 20 << 20

// Document is a loaded input document.
type Document struct {
	Ref      string
	MIMEType string
	Data     []byte
}

// IsText reports whether the document can be inlined into a prompt.
func (d *Document) IsText() bool {
	return strings.HasPrefix(d.MIMEType, "text/") || d.MIMEType == "application/json"
}

// DocumentLoader resolves a document reference into its content.
type DocumentLoader interface {
	Load(ctx context.Context, ref string) (*Document, error)
}

// FSLoader reads documents from a directory tree. References are slash
// separated paths relative to the root and may not escape it.
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader returns a loader rooted at dir.
func NewFSLoader(dir string) *FSLoader {
	return &FSLoader{fsys: os.DirFS(dir)}
}

// NewFSLoaderFS returns a loader over an arbitrary filesystem.
func NewFSLoaderFS(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// Load reads the document named by ref.
func (l *FSLoader) Load(ctx context.Context, ref string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(ref)), "/")
	if name == "" || !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid document reference %q", ref)
	}

	info, err := fs.Stat(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, ref)
		}
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("document reference %q is a directory", ref)
	}
	if info.Size() > maxDocumentSize {
		return nil, fmt.Errorf("document %q exceeds %d bytes", ref, maxDocumentSize)
	}

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	return &Document{Ref: ref, MIMEType: detectMIMEType(name), Data: data}, nil
}

func detectMIMEType(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".md", ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	case "":
		return "text/plain"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			// Drop parameters such as charset
			if i := strings.Index(t, ";"); i >= 0 {
				t = t[:i]
			}
			return t
		}
		return "application/octet-stream"
	}
}
