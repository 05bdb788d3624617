package querybuilder

import "fmt"

// Statement kinds accepted by BuilderFor.
const (
	KindGetRowAtIndex       = "get"
	KindDeleteRowWithKey    = "delete"
	KindUpdateRow           = "update"
	KindInsertRowWithValues = "insert"
	KindInsertRow           = "insert-plain"
)

// Kinds lists the statement kinds in display order.
var Kinds = []string{KindGetRowAtIndex, KindInsertRowWithValues, KindInsertRow, KindUpdateRow, KindDeleteRowWithKey}

// BuilderFor returns the builder for a statement kind. index is used only
// by KindGetRowAtIndex.
func BuilderFor(kind string, index int64, opts Options) (Builder, error) {
	switch kind {
	case KindGetRowAtIndex:
		return GetRowAtIndex{Index: index, Options: opts}, nil
	case KindDeleteRowWithKey:
		return DeleteRowWithKey{Options: opts}, nil
	case KindUpdateRow:
		return UpdateRow{Options: opts}, nil
	case KindInsertRowWithValues:
		return InsertRowWithValues{Options: opts}, nil
	case KindInsertRow:
		return InsertRow{Options: opts}, nil
	}
	return nil, fmt.Errorf("unknown statement kind %q (want one of %v)", kind, Kinds)
}
