package core

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// StatusMapper turns backend-native status labels into column names.
//
// Resolution order: user rules (first glob match wins), then the backend's
// table (case-insensitive), then the trimmed native label itself. The mapping
// is therefore total and deterministic.
type StatusMapper struct {
	rules []StatusRule
	table map[string]string
}

// NewStatusMapper builds a mapper from user rules and a backend table.
func NewStatusMapper(rules []StatusRule, table map[string]string) *StatusMapper {
	m := &StatusMapper{table: make(map[string]string, len(table))}
	for native, column := range table {
		m.table[foldStatus(native)] = column
	}
	for _, r := range rules {
		if strings.TrimSpace(r.Match) == "" || strings.TrimSpace(r.Column) == "" {
			continue
		}
		if !doublestar.ValidatePattern(r.Match) {
			continue
		}
		m.rules = append(m.rules, r)
	}
	return m
}

// Override returns the column of the first user rule matching native.
func (m *StatusMapper) Override(native string) (string, bool) {
	label := collapseSpace(native)
	for _, r := range m.rules {
		if ok, _ := doublestar.Match(r.Match, label); ok {
			return strings.TrimSpace(r.Column), true
		}
	}
	return "", false
}

// Map returns the column name for a native status label.
func (m *StatusMapper) Map(native string) string {
	if column, ok := m.Override(native); ok {
		return column
	}
	label := collapseSpace(native)
	if column, ok := m.table[foldStatus(label)]; ok {
		return column
	}
	if label == "" {
		return NoStatusColumn
	}
	return label
}

func foldStatus(s string) string {
	return strings.ToLower(collapseSpace(s))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
