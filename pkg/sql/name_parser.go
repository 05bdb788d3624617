package sql

import (
	"fmt"
	"strings"
)

// ParseQualifiedName parses "schema.name" as typed on a command line.
// Either part may be bracket-quoted, with "]]" standing for a literal ']',
// so "[dbo].[Order Details]" and "dbo.Order Details" are the same table.
// A name without a schema gets defaultSchema.
func ParseQualifiedName(s, defaultSchema string) (QualifiedName, error) {
	parts, err := splitNameParts(strings.TrimSpace(s))
	if err != nil {
		return QualifiedName{}, fmt.Errorf("invalid name %q: %w", s, err)
	}

	switch len(parts) {
	case 1:
		return QualifiedName{Schema: defaultSchema, Name: parts[0]}, nil
	case 2:
		if parts[0] == "" {
			return QualifiedName{}, fmt.Errorf("invalid name %q: empty schema", s)
		}
		return QualifiedName{Schema: parts[0], Name: parts[1]}, nil
	}
	return QualifiedName{}, fmt.Errorf("invalid name %q: want schema.name", s)
}

// splitNameParts splits on dots outside brackets and unquotes each part.
func splitNameParts(s string) ([]string, error) {
	var parts []string
	var current strings.Builder
	inBrackets := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inBrackets && ch == ']':
			if i+1 < len(s) && s[i+1] == ']' {
				current.WriteByte(']')
				i++
				continue
			}
			inBrackets = false
		case !inBrackets && ch == '[' && current.Len() == 0:
			inBrackets = true
		case !inBrackets && ch == '.':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if inBrackets {
		return nil, fmt.Errorf("unterminated '['")
	}
	parts = append(parts, current.String())

	if parts[len(parts)-1] == "" {
		return nil, fmt.Errorf("empty name")
	}
	return parts, nil
}
