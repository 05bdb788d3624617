package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDatasource struct {
	Datasource
	config map[string]any
}

func TestRegistry_Open(t *testing.T) {
	Register(DatasourceAdapterRegistration{
		Info: DatasourceAdapterInfo{Type: "stub", DisplayName: "Stub"},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (Datasource, error) {
			return &stubDatasource{config: config}, nil
		},
	})

	assert.True(t, IsRegistered("stub"))
	assert.Contains(t, RegisteredAdapters(), DatasourceAdapterInfo{Type: "stub", DisplayName: "Stub"})

	ds, err := Open(context.Background(), "stub", map[string]any{"host": "h"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "h", ds.(*stubDatasource).config["host"])
}

func TestRegistry_OpenUnknownType(t *testing.T) {
	assert.False(t, IsRegistered("oracle"))
	assert.Nil(t, GetFactory("oracle"))

	_, err := Open(context.Background(), "oracle", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported datasource type: oracle")
}
