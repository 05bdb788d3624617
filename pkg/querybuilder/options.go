package querybuilder

import (
	"fmt"
	"regexp"

	"github.com/ekaya-inc/ekaya-grid/pkg/sql"
)

// DefaultHoldingTable is the temporary table name used by inserts, without
// the leading '#'.
const DefaultHoldingTable = "tempTable1"

// RowNumberColumn is the alias of the 0-based row position column.
const RowNumberColumn = "rowNumberX"

var plainName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures generated names. The zero value uses the defaults.
type Options struct {
	// ValuePrefix prefixes positional parameters: @v0, @v1, ...
	ValuePrefix string
	// HoldingTable names the session temporary table used by inserts.
	HoldingTable string
}

func (o Options) withDefaults() Options {
	if o.ValuePrefix == "" {
		o.ValuePrefix = sql.DefaultValuePrefix
	}
	if o.HoldingTable == "" {
		o.HoldingTable = DefaultHoldingTable
	}
	return o
}

// Validate rejects names that would need quoting. Both names are written
// into statements unbracketed.
func (o Options) Validate() error {
	o = o.withDefaults()
	if !plainName.MatchString(o.ValuePrefix) {
		return fmt.Errorf("invalid value prefix %q", o.ValuePrefix)
	}
	if !plainName.MatchString(o.HoldingTable) {
		return fmt.Errorf("invalid holding table name %q", o.HoldingTable)
	}
	return nil
}

func (o Options) placeholder(i int) sql.Formatter {
	return sql.PrefixedPlaceholder(o.withDefaults().ValuePrefix, i)
}

func (o Options) namer() *namer {
	return &namer{prefix: o.withDefaults().ValuePrefix}
}
