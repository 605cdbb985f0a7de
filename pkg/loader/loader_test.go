package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faq.md")
	writeFile(t, path, "# FAQ\nOpen 9 to 5.")

	text, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "# FAQ\nOpen 9 to 5.", text)
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load("sheet.xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "nested", "b.PDF"), "b")
	writeFile(t, filepath.Join(dir, "nested", "c.png"), "c")
	writeFile(t, filepath.Join(dir, ".git", "d.md"), "d")

	files, err := Walk(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "nested", "b.PDF"),
	}, files)

	single, err := Walk(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = Walk(filepath.Join(dir, "nested", "c.png"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSourceName(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	nested := filepath.Join(dir, "nested", "b.md")
	writeFile(t, file, "a")
	writeFile(t, nested, "b")

	// A single file keeps the same name whether it came from Walk or from
	// a watcher event on its parent directory.
	root := Root(file)
	assert.Equal(t, dir, root)
	walked, err := Walk(file)
	require.NoError(t, err)
	require.Len(t, walked, 1)
	assert.Equal(t, "a.txt", SourceName(root, walked[0]))
	assert.Equal(t, "a.txt", SourceName(root, filepath.Join(root, "a.txt")))

	assert.Equal(t, dir, Root(dir))
	assert.Equal(t, "nested/b.md", SourceName(Root(dir), nested))
}

func TestDocxText(t *testing.T) {
	xml := `<w:body><w:p><w:r><w:t>Hello</w:t><w:tab/></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p></w:p><w:p><w:r><w:t>Fish &amp; chips</w:t></w:r></w:p></w:body>`

	assert.Equal(t, "Hello world\nFish & chips", docxText(xml))
}

func TestWatcher_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "ignored.png"), "x")
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")

	select {
	case path := <-changed:
		assert.Equal(t, filepath.Join(dir, "notes.txt"), path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}
