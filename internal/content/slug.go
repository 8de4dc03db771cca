package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 80

// deaccent strips combining marks after NFD decomposition, turning
// "é" into "e" while leaving plain ASCII untouched.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ligatures covers the French digraphs NFD does not decompose.
var ligatures = strings.NewReplacer(
	"œ", "oe",
	"Œ", "oe",
	"æ", "ae",
	"Æ", "ae",
	"ß", "ss",
)

// Slugify converts a title or file name into a URL-safe slug:
// lowercased, accents stripped, everything outside [a-z0-9] collapsed to
// single dashes. "Écrire des plugins esbuild" becomes
// "ecrire-des-plugins-esbuild".
func Slugify(name string) string {
	s := ligatures.Replace(name)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// AnchorID generates the auto heading ID the generator assigns, GitHub
// style: lowercased, punctuation removed, spaces turned into dashes.
// Unicode letters survive, so "Résumé rapide" yields "résumé-rapide".
func AnchorID(text string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-' || r == '\t':
			b.WriteByte('-')
		case r == '_':
			b.WriteByte('_')
		}
	}
	return b.String()
}
