// Package columns maps free-form report headers onto canonical field names.
package columns

import (
	"fmt"
	"strings"
)

// Field is a canonical column and the header spellings accepted for it, in
// preference order.
type Field struct {
	Name     string
	Synonyms []string
	Optional bool
	// Fallback is a last-resort substring tried when no synonym matches.
	Fallback string
}

// Mapping holds the resolved header index for each canonical field.
type Mapping map[string]int

// Index returns the column index for name, or -1 when it was not resolved.
func (m Mapping) Index(name string) int {
	if i, ok := m[name]; ok {
		return i
	}
	return -1
}

// Cell returns the trimmed value of field name in row, or "" when the column
// is unresolved or the row is short.
func (m Mapping) Cell(row []string, name string) string {
	i := m.Index(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// MissingColumnsError lists every required field that had no matching header.
type MissingColumnsError struct {
	Missing []Field
	Found   []string
}

func (e *MissingColumnsError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, f := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s (e.g., %s)", f.Name, strings.Join(f.Synonyms, ", ")))
	}
	msg := "Missing required columns: " + strings.Join(parts, "; ")
	if len(e.Found) > 0 {
		msg += ". Found columns: " + strings.Join(e.Found, ", ")
	}
	return msg
}

var brackets = strings.NewReplacer("(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ")

// Normalize lower-cases s, drops brackets and collapses whitespace, so
// "(Child) ASIN" reads as "child asin".
func Normalize(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.Join(strings.Fields(strings.ToLower(brackets.Replace(s))), " ")
}

func matches(header, synonym string) bool {
	if header == "" || synonym == "" {
		return false
	}
	return strings.Contains(header, synonym) || strings.Contains(synonym, header)
}

// Find returns the index of the first header matching any synonym, trying
// synonyms in order. Headers whose index is in claimed are skipped.
func Find(headers []string, synonyms []string, claimed map[int]bool) int {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = Normalize(h)
	}
	for _, syn := range synonyms {
		s := Normalize(syn)
		for i, h := range norm {
			if claimed[i] {
				continue
			}
			if matches(h, s) {
				return i
			}
		}
	}
	return -1
}

// Resolve maps each field onto a header. Fields are resolved in the given
// order and a header taken by an earlier field is not reused. A
// *MissingColumnsError is returned when any required field is unresolved.
func Resolve(headers []string, fields []Field) (Mapping, error) {
	m := Mapping{}
	claimed := map[int]bool{}
	var missing []Field
	for _, f := range fields {
		i := Find(headers, f.Synonyms, claimed)
		if i < 0 && f.Fallback != "" {
			i = containing(headers, f.Fallback, claimed)
		}
		if i < 0 {
			if !f.Optional {
				missing = append(missing, f)
			}
			continue
		}
		claimed[i] = true
		m[f.Name] = i
	}
	if len(missing) > 0 {
		return m, &MissingColumnsError{Missing: missing, Found: trimmed(headers)}
	}
	return m, nil
}

// ResolveLoose is the looser resolver used for Search Term Reports: a header
// matches when it contains one of the field's tokens. Tokens are tried in
// order and the first header containing it wins.
func ResolveLoose(headers []string, fields []Field) (Mapping, error) {
	m := Mapping{}
	var missing []Field
	for _, f := range fields {
		i := -1
		for _, tok := range f.Synonyms {
			if i = containing(headers, tok, nil); i >= 0 {
				break
			}
		}
		if i < 0 {
			if !f.Optional {
				missing = append(missing, f)
			}
			continue
		}
		m[f.Name] = i
	}
	if len(missing) > 0 {
		return m, &MissingColumnsError{Missing: missing, Found: trimmed(headers)}
	}
	return m, nil
}

func containing(headers []string, token string, claimed map[int]bool) int {
	tok := Normalize(token)
	for i, h := range headers {
		if claimed[i] {
			continue
		}
		if strings.Contains(Normalize(h), tok) {
			return i
		}
	}
	return -1
}

func trimmed(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")); h != "" {
			out = append(out, h)
		}
	}
	return out
}
