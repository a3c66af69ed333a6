package memorybank

import (
	"context"
	"testing"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/bank/banktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	banktest.RunConformance(t, func(t *testing.T) bank.Plugin {
		return New()
	})
}

func TestStoredValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	value := []byte("abc")

	require.NoError(t, s.UpdateObject(ctx, "k", value))
	value[0] = 'X'

	got, err := s.GetObject(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'Y'
	again, err := s.GetObject(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestBackendRegistration(t *testing.T) {
	table := bank.NewTable()
	Backend{}.Register(table)

	p, err := table.Open(context.Background(), Name, nil)
	require.NoError(t, err)
	assert.IsType(t, &Store{}, p)
}
