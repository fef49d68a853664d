package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptlyprinted/forge/internal/domain"
)

func TestStaticCostTable_UnitsFor(t *testing.T) {
	table := domain.NewStaticCostTable()

	t.Run("should return table costs for known models", func(t *testing.T) {
		require.Equal(t, 1, table.UnitsFor("flux-schnell"))
		require.Equal(t, 2, table.UnitsFor("flux-dev"))
		require.Equal(t, 5, table.UnitsFor("flux-pro"))
	})

	t.Run("should default unknown models to minimum cost", func(t *testing.T) {
		require.Equal(t, 1, table.UnitsFor("some-future-model"))
		require.Equal(t, 1, table.UnitsFor(""))
	})
}
