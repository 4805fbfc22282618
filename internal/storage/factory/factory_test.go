package factory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/config"
	"github.com/rdfvault/revengine/internal/storage/factory"
)

func TestNewMemoryBackend(t *testing.T) {
	store, err := factory.New(context.Background(), config.BackendMemory, "")
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := factory.New(context.Background(), "bogus", "")
	assert.Error(t, err)
}

func TestNewSQLiteRequiresDSN(t *testing.T) {
	_, err := factory.New(context.Background(), config.BackendSQLite, "")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendMemory}
	store, err := factory.NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}
