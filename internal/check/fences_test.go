package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
)

func TestLanguageSet(t *testing.T) {
	set := LanguageSet(nil)
	assert.True(t, set["go"])
	assert.True(t, set["typescript"])
	assert.False(t, set["crystal"])

	set = LanguageSet([]string{" Crystal ", "", "mermaid"})
	assert.True(t, set["crystal"])
	assert.False(t, set[""])
}

func TestCheckFences(t *testing.T) {
	a := &content.Article{
		Path: "posts/x.md",
		Fences: []content.Fence{
			{Info: "go", Line: 3, Closed: true},
			{Info: "", Line: 9, Closed: true, Empty: true},
			{Info: "crystal", Line: 14, Closed: true},
			{Info: "TS", Line: 19, Closed: true},
			{Info: "go", Line: 25, Closed: false, Empty: true},
		},
	}
	findings := CheckFences(a, LanguageSet(nil))
	require.Len(t, findings, 3)

	assert.Equal(t, RuleFenceEmpty, findings[0].Rule)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Equal(t, 9, findings[0].Line)

	assert.Equal(t, RuleFenceUnknownLanguage, findings[1].Rule)
	assert.Equal(t, `unknown code fence language "crystal"`, findings[1].Message)

	// The unclosed fence only reports once, its emptiness is noise.
	assert.Equal(t, RuleFenceUnclosed, findings[2].Rule)
	assert.Equal(t, SeverityError, findings[2].Severity)
	assert.Equal(t, 25, findings[2].Line)
}
