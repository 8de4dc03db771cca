package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitYAML(t *testing.T) {
	data := []byte("---\ntitle: Hello\ndate: 2024-03-01\n---\n\nBody here.\n")

	fm, body, bodyLine, format, err := Split(data)
	require.NoError(t, err)

	assert.Equal(t, FormatYAML, format)
	assert.Equal(t, "title: Hello\ndate: 2024-03-01\n", string(fm))
	assert.Equal(t, "\nBody here.\n", string(body))
	assert.Equal(t, 5, bodyLine)
}

func TestSplitTOML(t *testing.T) {
	data := []byte("+++\ntitle = \"Hi\"\n+++\nBody\n")

	fm, body, bodyLine, format, err := Split(data)
	require.NoError(t, err)

	assert.Equal(t, FormatTOML, format)
	assert.Equal(t, "title = \"Hi\"\n", string(fm))
	assert.Equal(t, "Body\n", string(body))
	assert.Equal(t, 4, bodyLine)
}

func TestSplitJSON(t *testing.T) {
	data := []byte("{\n  \"title\": \"Braces {inside} a string\"\n}\nBody\n")

	fm, body, bodyLine, format, err := Split(data)
	require.NoError(t, err)

	assert.Equal(t, FormatJSON, format)
	assert.Equal(t, "{\n  \"title\": \"Braces {inside} a string\"\n}", string(fm))
	assert.Equal(t, "Body\n", string(body))
	assert.Equal(t, 4, bodyLine)
}

func TestSplitCRLF(t *testing.T) {
	data := []byte("---\r\ntitle: Hi\r\n---\r\nBody\r\n")

	fm, body, bodyLine, format, err := Split(data)
	require.NoError(t, err)

	assert.Equal(t, FormatYAML, format)
	assert.Equal(t, "title: Hi\r\n", string(fm))
	assert.Equal(t, "Body\r\n", string(body))
	assert.Equal(t, 4, bodyLine)
}

func TestSplitErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"plain markdown", "# Hello\n\nNo front matter.\n", ErrNoFrontMatter},
		{"horizontal rule", "----\nnot a delimiter\n", ErrNoFrontMatter},
		{"empty file", "", ErrNoFrontMatter},
		{"unclosed yaml", "---\ntitle: x\n", ErrUnclosedFrontMatter},
		{"unclosed json", "{\n\"title\": \"x\"\n", ErrUnclosedFrontMatter},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, _, err := Split([]byte(tc.data))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	raw := []byte("title: Accès réseau\ndate: 2024-03-01\ndraft: true\ntags: [go, nestjs]\ntoc: true\n")

	fm, unknown, err := Decode(raw, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "Accès réseau", fm.Title)
	assert.True(t, fm.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, fm.Draft)
	assert.Equal(t, []string{"go", "nestjs"}, fm.Tags)
	assert.Equal(t, []string{"toc"}, unknown)
}

func TestDecodeTOMLDates(t *testing.T) {
	t.Run("bare date", func(t *testing.T) {
		fm, _, err := Decode([]byte("title = \"A\"\ndate = 2023-11-12\n"), FormatTOML)
		require.NoError(t, err)
		assert.Equal(t, "2023-11-12", fm.RawDate)
		assert.True(t, fm.Date.Equal(time.Date(2023, 11, 12, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("quoted date", func(t *testing.T) {
		fm, _, err := Decode([]byte("title = \"A\"\ndate = \"2023-11-12\"\n"), FormatTOML)
		require.NoError(t, err)
		assert.Equal(t, "2023-11-12", fm.RawDate)
		assert.True(t, fm.Date.Equal(time.Date(2023, 11, 12, 0, 0, 0, 0, time.UTC)))
	})
}

func TestDecodeJSON(t *testing.T) {
	raw := []byte(`{"title": "Hi", "draft": true, "tags": ["a", "b"], "date": "2024-01-15T10:30:00Z", "layout": "wide"}`)

	fm, unknown, err := Decode(raw, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "Hi", fm.Title)
	assert.True(t, fm.Draft)
	assert.Equal(t, []string{"a", "b"}, fm.Tags)
	assert.True(t, fm.Date.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, []string{"layout"}, unknown)
}

func TestDecodeKeysAreCaseInsensitive(t *testing.T) {
	fm, unknown, err := Decode([]byte("Title: Hi\nDraft: true\n"), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "Hi", fm.Title)
	assert.True(t, fm.Draft)
	assert.Empty(t, unknown)
}

func TestDecodeScalarTagBecomesList(t *testing.T) {
	fm, _, err := Decode([]byte("title: Hi\ntags: go\n"), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, []string{"go"}, fm.Tags)
}

func TestDecodeBadDateKeptRaw(t *testing.T) {
	fm, _, err := Decode([]byte("title: Hi\ndate: someday\n"), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "someday", fm.RawDate)
	assert.True(t, fm.Date.IsZero())
}

func TestDecodeInvalidYAML(t *testing.T) {
	_, _, err := Decode([]byte("title: [unclosed\n"), FormatYAML)
	assert.Error(t, err)
}
