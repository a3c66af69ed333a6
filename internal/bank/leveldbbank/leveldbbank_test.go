package leveldbbank

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/bank/banktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance_Memory(t *testing.T) {
	banktest.RunConformance(t, func(t *testing.T) bank.Plugin {
		s, err := Open(MemoryPath)
		require.NoError(t, err)
		return s
	})
}

func TestConformance_Files(t *testing.T) {
	banktest.RunConformance(t, func(t *testing.T) bank.Plugin {
		s, err := Open(filepath.Join(t.TempDir(), "bank.db"))
		require.NoError(t, err)
		return s
	})
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bank.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateObject(ctx, "cp/metadata", []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetObject(ctx, "cp/metadata")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func TestBackendRequiresPath(t *testing.T) {
	table := bank.NewTable()
	Backend{}.Register(table)

	_, err := table.Open(context.Background(), Name, nil)
	assert.ErrorContains(t, err, "option 'path' is required")
}
