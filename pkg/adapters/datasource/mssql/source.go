package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/adapters/datasource"
)

// Source is a SQL Server datasource: one pool shared by schema discovery
// and statement execution.
type Source struct {
	*Adapter
	*SchemaDiscoverer
	*Executor
}

var _ datasource.Datasource = (*Source)(nil)

// Open connects to cfg and returns the datasource.
func Open(ctx context.Context, cfg *Config, logger *zap.Logger) (*Source, error) {
	adapter, err := NewAdapter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Source{
		Adapter:          adapter,
		SchemaDiscoverer: NewSchemaDiscoverer(adapter.DB(), adapter.logger),
		Executor:         NewExecutor(adapter.DB(), adapter.logger),
	}, nil
}
