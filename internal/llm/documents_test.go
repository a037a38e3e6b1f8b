package llm

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSLoader_Load(t *testing.T) {
	loader := NewFSLoaderFS(fstest.MapFS{
		"cv/a.md":      {Data: []byte("# CV")},
		"cv/b.pdf":     {Data: []byte("%PDF")},
		"notes/c":      {Data: []byte("plain")},
		"data/d.json":  {Data: []byte(`{}`)},
		"cv/dir/e.txt": {Data: []byte("nested")},
		"scan/f.bin":   {Data: []byte{0x00}},
	})

	tests := []struct {
		ref      string
		mimeType string
		isText   bool
	}{
		{"cv/a.md", "text/plain", true},
		{"/cv/b.pdf", "application/pdf", false},
		{"notes/c", "text/plain", true},
		{"data/d.json", "application/json", true},
		{"cv/dir/e.txt", "text/plain", true},
		{"scan/f.bin", "application/octet-stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			doc, err := loader.Load(context.Background(), tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.mimeType, doc.MIMEType)
			assert.Equal(t, tt.isText, doc.IsText())
			assert.Equal(t, tt.ref, doc.Ref)
		})
	}
}

func TestFSLoader_Rejects(t *testing.T) {
	loader := NewFSLoaderFS(fstest.MapFS{"cv/a.md": {Data: []byte("x")}})

	for _, ref := range []string{"", "../etc/passwd", "cv/../../secret", "cv"} {
		t.Run(ref, func(t *testing.T) {
			_, err := loader.Load(context.Background(), ref)
			assert.Error(t, err)
		})
	}

	_, err := loader.Load(context.Background(), "cv/missing.md")
	assert.True(t, errors.Is(err, ErrDocumentNotFound))
}

func TestFSLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFSLoaderFS(fstest.MapFS{}).Load(ctx, "cv/a.md")
	assert.ErrorIs(t, err, context.Canceled)
}
