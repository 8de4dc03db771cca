package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softweb-fr/softweb-fr.github.io/internal/check"
)

func TestCheckJSON(t *testing.T) {
	writeSite(t)

	var buf bytes.Buffer
	code := run([]string{"check", "-json", "-no-external"}, &buf)
	assert.Equal(t, 1, code)

	var rep check.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	assert.Equal(t, 3, rep.Articles)
	assert.NotEmpty(t, rep.RunID)

	require.Len(t, rep.Findings, 1)
	f := rep.Findings[0]
	assert.Equal(t, check.RuleFenceUnclosed, f.Rule)
	assert.Equal(t, check.SeverityError, f.Severity)
	assert.Equal(t, "posts/casse.md", f.Path)
}

func TestCheckHumanOutput(t *testing.T) {
	writeSite(t)

	var buf bytes.Buffer
	code := run([]string{"check", "-no-external"}, &buf)
	assert.Equal(t, 1, code)

	out := buf.String()
	assert.Contains(t, out, "posts/casse.md:")
	assert.Contains(t, out, "fences/unclosed")
	assert.Contains(t, out, "3 articles checked, 1 errors, 0 warnings")
}

func TestCheckStrictFailsOnWarnings(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	full := filepath.Join(dir, "content", "posts", "tiede.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	// An unknown fence language is only a warning.
	require.NoError(t, os.WriteFile(full,
		[]byte("---\ntitle: Tiède\ndate: 2024-05-12\n---\n\n```brainfuck\n+++\n```\n"), 0o644))

	var buf bytes.Buffer
	assert.Equal(t, 0, run([]string{"check", "-no-external"}, &buf))

	buf.Reset()
	assert.Equal(t, 1, run([]string{"check", "-no-external", "-strict"}, &buf))
}

func TestCheckChangedOnly(t *testing.T) {
	dir := writeSite(t)

	var buf bytes.Buffer
	require.Equal(t, 0, run([]string{"export"}, &buf))

	// Break the clean article, leave the others untouched.
	full := filepath.Join(dir, "content", "posts", "propre.md")
	require.NoError(t, os.WriteFile(full,
		[]byte("---\ntitle: Propre\ndate: 2024-05-12\n---\n\n[vide]()\n"), 0o644))

	buf.Reset()
	code := run([]string{"check", "-json", "-no-external", "-changed-only"}, &buf)
	assert.Equal(t, 1, code)

	var rep check.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, "posts/propre.md", rep.Findings[0].Path)
	assert.Equal(t, check.RuleLinkEmpty, rep.Findings[0].Rule)
}

func TestCheckChangedOnlyWithoutBaseline(t *testing.T) {
	writeSite(t)

	// No snapshot on disk: everything is checked.
	var buf bytes.Buffer
	code := run([]string{"check", "-json", "-no-external", "-changed-only"}, &buf)
	assert.Equal(t, 1, code)

	var rep check.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, "posts/casse.md", rep.Findings[0].Path)
}
