package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/adapters/datasource"
)

// DatasourceType is the registry key of the SQL Server adapter.
const DatasourceType = "mssql"

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        DatasourceType,
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2019+, Azure SQL Database",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.Datasource, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			src, err := Open(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
	})
}
