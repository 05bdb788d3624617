package sql

import (
	"maps"
	"slices"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes a cell value that libinjection classifies as SQL.
type InjectionFinding struct {
	Column      string
	Fingerprint string
	Value       string
}

// CheckValue runs libinjection over a cell value. Values are always sent as
// bound parameters, so a finding is an audit signal rather than a hole.
// Only strings are checked; nil is returned when nothing is detected.
func CheckValue(column string, value any) *InjectionFinding {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(s)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{
		Column:      column,
		Fingerprint: string(fingerprint),
		Value:       s,
	}
}

// CheckValues checks every value in a row, in column name order.
func CheckValues(values map[string]any) []*InjectionFinding {
	var findings []*InjectionFinding
	for _, column := range slices.Sorted(maps.Keys(values)) {
		if f := CheckValue(column, values[column]); f != nil {
			findings = append(findings, f)
		}
	}
	return findings
}
