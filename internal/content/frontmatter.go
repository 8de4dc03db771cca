package content

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/valyala/fastjson"
	"gopkg.in/yaml.v3"
)

// Format identifies the front matter encoding, detected by delimiter the
// way the generator does it.
type Format int

const (
	FormatNone Format = iota
	FormatYAML        // --- ... ---
	FormatTOML        // +++ ... +++
	FormatJSON        // { ... }
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatJSON:
		return "json"
	default:
		return "none"
	}
}

var (
	// ErrNoFrontMatter marks a document that does not start with a front
	// matter delimiter.
	ErrNoFrontMatter = errors.New("document has no front matter")
	// ErrUnclosedFrontMatter marks a front matter block whose closing
	// delimiter is missing.
	ErrUnclosedFrontMatter = errors.New("front matter is not closed")
)

var (
	yamlDelim = []byte("---")
	tomlDelim = []byte("+++")
)

// Split separates the front matter block from the body. It returns the raw
// front matter (without delimiters), the body, the 1-based line number of
// the first body line and the detected format. CRLF line endings are
// accepted.
func Split(data []byte) (fm, body []byte, bodyLine int, format Format, err error) {
	switch {
	case hasDelimiterPrefix(data, yamlDelim):
		return splitDelimited(data, yamlDelim, FormatYAML)
	case hasDelimiterPrefix(data, tomlDelim):
		return splitDelimited(data, tomlDelim, FormatTOML)
	case len(bytes.TrimLeft(data, " \t\r\n")) > 0 && bytes.TrimLeft(data, " \t\r\n")[0] == '{':
		return splitJSON(data)
	default:
		return nil, nil, 0, FormatNone, ErrNoFrontMatter
	}
}

func hasDelimiterPrefix(data, delim []byte) bool {
	if !bytes.HasPrefix(data, delim) {
		return false
	}
	rest := data[len(delim):]
	return len(rest) == 0 || rest[0] == '\n' || rest[0] == '\r'
}

func splitDelimited(data, delim []byte, format Format) (fm, body []byte, bodyLine int, _ Format, err error) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	var fmBuf bytes.Buffer
	for i := 1; i < len(lines); i++ {
		if isDelimiterLine(lines[i], delim) {
			body = bytes.Join(lines[i+1:], nil)
			return fmBuf.Bytes(), body, i + 2, format, nil
		}
		fmBuf.Write(lines[i])
	}
	return nil, nil, 0, format, ErrUnclosedFrontMatter
}

func isDelimiterLine(line, delim []byte) bool {
	trimmed := bytes.TrimRight(line, " \t\r\n")
	return bytes.Equal(trimmed, delim)
}

// splitJSON scans for the brace that closes the front matter object,
// honoring strings and escapes.
func splitJSON(data []byte) (fm, body []byte, bodyLine int, format Format, err error) {
	start := bytes.IndexByte(data, '{')
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(data); i++ {
		c := data[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				fm = data[start : i+1]
				body = data[i+1:]
				if len(body) > 0 && body[0] == '\r' {
					body = body[1:]
				}
				if len(body) > 0 && body[0] == '\n' {
					body = body[1:]
				}
				bodyLine = bytes.Count(data[:i+1], []byte("\n")) + 2
				return fm, body, bodyLine, FormatJSON, nil
			}
		}
	}
	return nil, nil, 0, FormatJSON, ErrUnclosedFrontMatter
}

// schemaKeys is the content schema the external generator consumes.
var schemaKeys = map[string]bool{
	"title":       true,
	"date":        true,
	"draft":       true,
	"slug":        true,
	"description": true,
	"tags":        true,
	"categories":  true,
	"lang":        true,
	"aliases":     true,
}

// Decode parses raw front matter in the given format into the typed
// schema. Keys outside the schema are returned separately so a rule can
// warn about them without failing the document.
func Decode(raw []byte, format Format) (FrontMatter, []string, error) {
	var fields map[string]any
	var err error

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(raw, &fields)
	case FormatTOML:
		err = toml.Unmarshal(raw, &fields)
	case FormatJSON:
		fields, err = decodeJSONFields(raw)
	default:
		err = ErrNoFrontMatter
	}
	if err != nil {
		return FrontMatter{}, nil, fmt.Errorf("decode %s front matter: %w", format, err)
	}

	return normalize(fields)
}

// decodeJSONFields extracts typed values from a JSON object without an
// intermediate unmarshal.
func decodeJSONFields(raw []byte) (map[string]any, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, err
	}
	obj, err := v.Object()
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, obj.Len())
	obj.Visit(func(key []byte, v *fastjson.Value) {
		k := string(key)
		switch v.Type() {
		case fastjson.TypeString:
			fields[k] = string(v.GetStringBytes())
		case fastjson.TypeTrue:
			fields[k] = true
		case fastjson.TypeFalse:
			fields[k] = false
		case fastjson.TypeNumber:
			fields[k] = v.GetFloat64()
		case fastjson.TypeArray:
			arr := v.GetArray()
			items := make([]any, 0, len(arr))
			for _, item := range arr {
				if item.Type() == fastjson.TypeString {
					items = append(items, string(item.GetStringBytes()))
				}
			}
			fields[k] = items
		default:
			fields[k] = nil
		}
	})
	return fields, nil
}

// normalize coerces the decoded field map into the schema. Coercion is
// tolerant: scalar tags become single-element lists, string booleans are
// accepted, and an unparseable date is kept as RawDate for the rule layer.
func normalize(fields map[string]any) (FrontMatter, []string, error) {
	var fm FrontMatter
	var unknown []string

	for key, value := range fields {
		lower := strings.ToLower(key)
		if !schemaKeys[lower] {
			unknown = append(unknown, key)
			continue
		}
		switch lower {
		case "title":
			fm.Title = asString(value)
		case "date":
			fm.RawDate, fm.Date = asDate(value)
		case "draft":
			fm.Draft = asBool(value)
		case "slug":
			fm.Slug = asString(value)
		case "description":
			fm.Description = asString(value)
		case "tags":
			fm.Tags = asStringList(value)
		case "categories":
			fm.Categories = asStringList(value)
		case "lang":
			fm.Lang = asString(value)
		case "aliases":
			fm.Aliases = asStringList(value)
		}
	}
	sort.Strings(unknown)
	return fm, unknown, nil
}

// dateLayouts are the accepted date spellings, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asDate(value any) (raw string, t time.Time) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339), v
	case toml.LocalDate:
		t = v.AsTime(time.UTC)
		return t.Format("2006-01-02"), t
	case toml.LocalDateTime:
		t = v.AsTime(time.UTC)
		return t.Format("2006-01-02T15:04:05"), t
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, v); err == nil {
				return v, parsed
			}
		}
		return v, time.Time{}
	default:
		return "", time.Time{}
	}
}

func asString(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func asBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

func asStringList(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
