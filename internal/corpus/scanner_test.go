package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, root, rel, data string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "posts/2024-05-12-deboguer-nestjs.md",
		"---\ntitle: Déboguer\ndate: 2024-05-12\n---\n\nCorps du billet.\n")
	writeFile(t, root, "posts/casse.md", "---\ntitle: x\n")
	writeFile(t, root, "about.md", "---\ntitle: À propos\n---\n\nPage.\n")
	writeFile(t, root, "notes.txt", "pas du markdown")
	writeFile(t, root, ".git/objects/fake.md", "ignored")

	s := NewScanner(root, content.ParseOptions{})
	res, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Files)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, "about.md", res.Articles[0].Path)
	assert.Equal(t, "posts/2024-05-12-deboguer-nestjs.md", res.Articles[1].Path)

	require.Len(t, res.Problems, 1)
	assert.Equal(t, "posts/casse.md", res.Problems[0].Path)
	assert.ErrorIs(t, res.Problems[0].Err, content.ErrUnclosedFrontMatter)
}

func TestScanIgnoreGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "posts/garde.md", "---\ntitle: Gardé\n---\n\nCorps.\n")
	writeFile(t, root, "posts/brouillon-x.md", "---\ntitle: Brouillon\n---\n\nCorps.\n")
	writeFile(t, root, "archives/vieux.md", "---\ntitle: Vieux\n---\n\nCorps.\n")

	s := NewScanner(root, content.ParseOptions{})
	s.Ignore = []string{"brouillon-*.md", "archives/*"}

	res, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "posts/garde.md", res.Articles[0].Path)
}

func TestScanFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "posts/billet.md", "---\ntitle: Billet\ndate: 2024-01-15\n---\nCorps.\n")

	s := NewScanner(root, content.ParseOptions{})
	a, err := s.ScanFile("posts/billet.md")
	require.NoError(t, err)
	assert.Equal(t, "Billet", a.Title)
	assert.Equal(t, "billet", a.Slug)

	_, err = s.ScanFile("posts/absent.md")
	assert.Error(t, err)
}

func TestScanMissingRoot(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "absent"), content.ParseOptions{})
	_, err := s.Scan(context.Background())
	assert.Error(t, err)
}
