// Package headers maps the literal header cells of a source table onto
// canonical feed fields using a declarative alias table.
package headers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gyeh/lossreport/internal/normalize"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

// Key folds a header for comparison: lowercase, accents removed and every
// non-alphanumeric character dropped ("Descripción  Prestación" and
// "descripcion-prestacion" share a key).
func Key(s string) string {
	return nonAlphanumeric.ReplaceAllString(normalize.Fold(s), "")
}

// Mapping resolves canonical fields to source header names.
type Mapping map[Field]string

// Header returns the source header for field, or ok=false when unresolved.
func (m Mapping) Header(field Field) (string, bool) {
	h, ok := m[field]
	return h, ok
}

// Strings returns the mapping keyed by field name, for summaries and logs.
func (m Mapping) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for f, h := range m {
		out[string(f)] = h
	}
	return out
}

// MissingError reports required fields that no source header resolved to.
type MissingError struct {
	Fields []Field
}

func (e *MissingError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(names, ", "))
}

// Resolve maps each field in table to at most one of headers. Aliases are
// tried in order and the first match wins; among headers that fold to the
// same key, the first in header order is used. Every unresolved required
// field is reported in a single *MissingError.
func Resolve(headers []string, table Table) (Mapping, error) {
	byKey := make(map[string]string, len(headers))
	for _, h := range headers {
		k := Key(h)
		if k == "" {
			continue
		}
		if _, dup := byKey[k]; !dup {
			byKey[k] = h
		}
	}

	m := make(Mapping, len(table))
	var missing []Field
	for _, a := range table {
		for _, name := range a.Names {
			if h, ok := byKey[Key(name)]; ok {
				m[a.Field] = h
				break
			}
		}
		if _, ok := m[a.Field]; !ok && a.Required {
			missing = append(missing, a.Field)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Fields: missing}
	}
	return m, nil
}
