package service

import (
	"context"
	"testing"

	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/pkg/db/pagination"
	"github.com/stretchr/testify/require"
)

func TestQueryListPaginatesAndFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	items, pageInfo, err := env.query.List(ctx, chargedomain.ListOptions{}, pagination.Pagination{Page: 1, PageSize: 4})
	require.NoError(t, err)
	require.Len(t, items, 4)
	require.EqualValues(t, 11, pageInfo.TotalCount)
	require.Equal(t, 1, pageInfo.Page)
	require.Equal(t, 4, pageInfo.PageSize)

	// Calendar order: the first page of the wrapped year starts in September.
	require.Equal(t, 9, items[0].Month)
	require.Equal(t, 2024, items[0].Year)

	last, pageInfo, err := env.query.List(ctx, chargedomain.ListOptions{}, pagination.Pagination{Page: 3, PageSize: 4})
	require.NoError(t, err)
	require.Len(t, last, 3)
	require.Equal(t, 7, last[2].Month)
	require.Equal(t, 2025, last[2].Year)
	require.EqualValues(t, 11, pageInfo.TotalCount)

	status := chargedomain.ChargeStatusPaid
	none, pageInfo, err := env.query.List(ctx, chargedomain.ListOptions{Status: &status}, pagination.Pagination{})
	require.NoError(t, err)
	require.Empty(t, none)
	require.Zero(t, pageInfo.TotalCount)
	// Defaults applied by Normalize.
	require.Equal(t, 1, pageInfo.Page)
	require.Equal(t, 50, pageInfo.PageSize)
}

func TestQueryGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	want := env.chargeForMonth(t, 10)
	got, err := env.query.Get(ctx, want.ID)
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)

	_, err = env.query.Get(ctx, env.node.Generate())
	require.ErrorIs(t, err, chargedomain.ErrChargeNotFound)
}
