package models

// TableRef identifies a user table discovered in the database.
type TableRef struct {
	Schema   string `json:"schema"`
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// Row is one table row addressed by its 0-based rank under id-column ordering.
type Row struct {
	Index  int64          `json:"index"`
	Values map[string]any `json:"values"`
}

// RowWindow is the previous/current/next neighborhood around Index.
// Previous and Next are nil at the ends of the table.
type RowWindow struct {
	Index    int64 `json:"index"`
	Previous *Row  `json:"previous,omitempty"`
	Current  *Row  `json:"current"`
	Next     *Row  `json:"next,omitempty"`
}

// Rows returns the non-nil rows of the window in order.
func (w *RowWindow) Rows() []*Row {
	var rows []*Row
	for _, r := range []*Row{w.Previous, w.Current, w.Next} {
		if r != nil {
			rows = append(rows, r)
		}
	}
	return rows
}
