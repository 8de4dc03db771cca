package postql

import (
	"strconv"
	"strings"
	"time"
)

// Record is an interface for articles that can be matched.
// This decouples postql from the corpus package.
type Record interface {
	GetTitle() string
	GetSlug() string
	GetSection() string
	GetDescription() string
	GetLang() string
	GetTags() []string
	GetCategories() []string
	GetDraft() bool
	GetDate() time.Time
	GetBody() string
}

// Match evaluates the AST node against a Record and returns true if it matches.
func Match(node Node, rec Record) bool {
	if node == nil {
		return true // No filter means match all
	}

	switch n := node.(type) {
	case BinaryExpr:
		return evalBinary(n, rec)
	case MatchExpr:
		return evalMatch(n, rec)
	case NotExpr:
		return !Match(n.Expr, rec)
	default:
		return false
	}
}

func evalBinary(expr BinaryExpr, rec Record) bool {
	left := Match(expr.Left, rec)
	right := Match(expr.Right, rec)

	switch expr.Op {
	case "AND":
		return left && right
	case "OR":
		return left || right
	default:
		return false
	}
}

func evalMatch(expr MatchExpr, rec Record) bool {
	// Full-text search (no key specified)
	if expr.Key == "" {
		return matchFullText(expr.Value, rec)
	}

	key := strings.ToLower(expr.Key)

	// List fields match when any element is equal.
	switch key {
	case "tag", "tags":
		return matchList(rec.GetTags(), expr.Value, expr.Op)
	case "category", "categories", "cat":
		return matchList(rec.GetCategories(), expr.Value, expr.Op)
	}

	// Free-text fields use substring matching, the way a search box behaves.
	switch key {
	case "title":
		return matchText(rec.GetTitle(), expr.Value, expr.Op)
	case "description", "desc":
		return matchText(rec.GetDescription(), expr.Value, expr.Op)
	case "body", "text":
		return matchText(rec.GetBody(), expr.Value, expr.Op)
	}

	// Scalar fields
	fieldValue := getFieldValue(key, rec)

	switch expr.Op {
	case "=":
		return matchEqual(fieldValue, expr.Value)
	case "!=":
		return !matchEqual(fieldValue, expr.Value)
	case "CONTAINS":
		return containsIgnoreCase(fieldValue, expr.Value)
	default:
		return matchEqual(fieldValue, expr.Value)
	}
}

// getFieldValue returns the value of a scalar field by name.
func getFieldValue(key string, rec Record) string {
	switch key {
	case "slug":
		return rec.GetSlug()
	case "section", "sec":
		return rec.GetSection()
	case "lang", "language":
		return rec.GetLang()
	case "draft":
		return strconv.FormatBool(rec.GetDraft())
	case "year":
		if rec.GetDate().IsZero() {
			return ""
		}
		return strconv.Itoa(rec.GetDate().Year())
	case "date":
		if rec.GetDate().IsZero() {
			return ""
		}
		return rec.GetDate().Format("2006-01-02")
	default:
		return ""
	}
}

func matchList(values []string, query, op string) bool {
	found := false
	for _, v := range values {
		if strings.EqualFold(v, query) {
			found = true
			break
		}
	}
	if op == "!=" {
		return !found
	}
	return found
}

func matchText(fieldValue, query, op string) bool {
	found := containsIgnoreCase(fieldValue, query)
	if op == "!=" {
		return !found
	}
	return found
}

// matchEqual performs case-insensitive equality check.
func matchEqual(fieldValue, queryValue string) bool {
	return strings.EqualFold(fieldValue, queryValue)
}

// containsIgnoreCase checks if haystack contains needle (case-insensitive).
func containsIgnoreCase(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// matchFullText searches across all fields.
func matchFullText(query string, rec Record) bool {
	q := strings.ToLower(query)
	fields := []string{
		rec.GetTitle(),
		rec.GetSlug(),
		rec.GetSection(),
		rec.GetDescription(),
		rec.GetBody(),
	}
	fields = append(fields, rec.GetTags()...)
	fields = append(fields, rec.GetCategories()...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
