package service

import (
	"context"
	"testing"

	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) generateAll(t *testing.T) {
	t.Helper()
	_, err := e.generator.GenerateForEnrollment(context.Background(), e.enrollment.ID)
	require.NoError(t, err)
}

func (e *testEnv) chargeForMonth(t *testing.T, month int) *chargedomain.MonthlyCharge {
	t.Helper()
	var ch chargedomain.MonthlyCharge
	require.NoError(t, e.db.Where("month = ?", month).First(&ch).Error)
	return &ch
}

func TestFreezeStampsActiveConfig(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	affected, err := env.snapshot.Freeze(ctx, chargedomain.FreezeRequest{
		Month: 10, Year: 2024, SchoolYearID: env.schoolYear.ID, Actor: "admin",
	})
	require.NoError(t, err)
	require.Equal(t, 1, affected)

	ch := env.chargeForMonth(t, 10)
	require.True(t, ch.Frozen)
	require.NotNil(t, ch.AppliedPrimaryPrice)
	require.True(t, ch.AppliedPrimaryPrice.Equal(dec2("50")))
	require.True(t, ch.AppliedSecondaryPrice.Equal(dec2("1800")))
	require.NotNil(t, ch.AppliedExchangeRate)
	// 1800 / 50, stored verbatim.
	require.True(t, ch.AppliedExchangeRate.Equal(dec2("36")))
	require.True(t, ch.AppliedMoraRate.Equal(dec2("0.02")))
	require.Equal(t, 5, *ch.AppliedGraceDays)
	require.True(t, ch.AppliedMoraCap.Equal(dec2("0.5")))
	require.NotNil(t, ch.AppliedConfigVersion)
	require.Equal(t, 1, *ch.AppliedConfigVersion)

	// Other months stay unfrozen.
	require.False(t, env.chargeForMonth(t, 11).Frozen)
}

func TestFreezeIsIdempotentUnderUnchangedConfig(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	req := chargedomain.FreezeRequest{Month: 10, Year: 2024, SchoolYearID: env.schoolYear.ID, Actor: "admin"}

	_, err := env.snapshot.Freeze(ctx, req)
	require.NoError(t, err)
	first := env.chargeForMonth(t, 10)

	_, err = env.snapshot.Freeze(ctx, req)
	require.NoError(t, err)
	second := env.chargeForMonth(t, 10)

	require.True(t, second.Frozen)
	require.True(t, first.AppliedPrimaryPrice.Equal(*second.AppliedPrimaryPrice))
	require.True(t, first.AppliedExchangeRate.Equal(*second.AppliedExchangeRate))
	require.True(t, first.AppliedMoraRate.Equal(*second.AppliedMoraRate))
	require.Equal(t, *first.AppliedConfigVersion, *second.AppliedConfigVersion)
}

func TestFreezeRejectsMonthOutsideCalendar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())

	_, err := env.snapshot.Freeze(ctx, chargedomain.FreezeRequest{
		Month: 8, Year: 2024, SchoolYearID: env.schoolYear.ID,
	})
	require.ErrorIs(t, err, chargedomain.ErrMonthOutOfCalendar)

	// Right month, wrong calendar year.
	_, err = env.snapshot.Freeze(ctx, chargedomain.FreezeRequest{
		Month: 10, Year: 2025, SchoolYearID: env.schoolYear.ID,
	})
	require.ErrorIs(t, err, chargedomain.ErrMonthOutOfCalendar)
}

func TestFreezeUnknownSchoolYear(t *testing.T) {
	env := newTestEnv(t)
	env.setConfig(t, baseConfig())

	_, err := env.snapshot.Freeze(context.Background(), chargedomain.FreezeRequest{
		Month: 10, Year: 2024, SchoolYearID: env.node.Generate(),
	})
	require.ErrorIs(t, err, schoolyeardomain.ErrSchoolYearNotFound)
}

func TestSyncPricesUpdatesBaseEverywhere(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	env.setConfig(t, configdomain.UpdateRequest{
		PrimaryPrice:   dec2Ptr("60"),
		SecondaryPrice: dec2Ptr("2400"),
	})

	res, err := env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{
		SyncMoraParams: true, Actor: "admin",
	})
	require.NoError(t, err)
	require.Equal(t, 11, res.Affected)
	require.True(t, res.Summary.PrimaryPrice.Equal(dec2("60")))
	require.NotNil(t, res.Summary.ExchangeRate)
	require.True(t, res.Summary.ExchangeRate.Equal(dec2("40")))
	require.Equal(t, 2, res.Summary.ConfigVersion)

	for _, ch := range env.charges(t) {
		require.True(t, ch.BaseAmount.Equal(dec2("60")))
	}
}

func TestSyncPricesWithoutMoraLeavesFrozenSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	_, err := env.snapshot.Freeze(ctx, chargedomain.FreezeRequest{
		Month: 10, Year: 2024, SchoolYearID: env.schoolYear.ID,
	})
	require.NoError(t, err)

	env.setConfig(t, configdomain.UpdateRequest{
		PrimaryPrice: dec2Ptr("60"),
		MoraRate:     dec2Ptr("0.05"),
	})

	_, err = env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{
		SyncMoraParams: false, Actor: "admin",
	})
	require.NoError(t, err)

	ch := env.chargeForMonth(t, 10)
	require.True(t, ch.Frozen)
	// Base follows the new price, the frozen snapshot keeps version 1 terms.
	require.True(t, ch.BaseAmount.Equal(dec2("60")))
	require.True(t, ch.AppliedPrimaryPrice.Equal(dec2("50")))
	require.True(t, ch.AppliedMoraRate.Equal(dec2("0.02")))
	require.Equal(t, 1, *ch.AppliedConfigVersion)
}

func TestSyncPricesWithMoraRefreezesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	_, err := env.snapshot.Freeze(ctx, chargedomain.FreezeRequest{
		Month: 10, Year: 2024, SchoolYearID: env.schoolYear.ID,
	})
	require.NoError(t, err)

	env.setConfig(t, configdomain.UpdateRequest{
		PrimaryPrice: dec2Ptr("60"),
		MoraRate:     dec2Ptr("0.05"),
	})

	_, err = env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{
		SyncMoraParams: true, Actor: "admin",
	})
	require.NoError(t, err)

	ch := env.chargeForMonth(t, 10)
	require.True(t, ch.Frozen)
	require.True(t, ch.AppliedPrimaryPrice.Equal(dec2("60")))
	require.True(t, ch.AppliedMoraRate.Equal(dec2("0.05")))
	require.Equal(t, 2, *ch.AppliedConfigVersion)

	// Unfrozen charges get the price but never a snapshot.
	other := env.chargeForMonth(t, 11)
	require.False(t, other.Frozen)
	require.True(t, other.BaseAmount.Equal(dec2("60")))
	require.Nil(t, other.AppliedConfigVersion)
}

func TestSyncPricesSkipsSettledCharges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	paid := env.chargeForMonth(t, 9)
	require.NoError(t, env.db.Model(paid).Update("status", chargedomain.ChargeStatusPaid).Error)
	voided := env.chargeForMonth(t, 10)
	require.NoError(t, env.db.Model(voided).Update("status", chargedomain.ChargeStatusVoided).Error)

	env.setConfig(t, configdomain.UpdateRequest{PrimaryPrice: dec2Ptr("60")})

	res, err := env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{Actor: "admin"})
	require.NoError(t, err)
	require.Equal(t, 9, res.Affected)

	require.True(t, env.chargeForMonth(t, 9).BaseAmount.Equal(dec2("50")))
	require.True(t, env.chargeForMonth(t, 10).BaseAmount.Equal(dec2("50")))
	require.True(t, env.chargeForMonth(t, 11).BaseAmount.Equal(dec2("60")))
}

func TestSyncPricesScopedToMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	env.setConfig(t, configdomain.UpdateRequest{PrimaryPrice: dec2Ptr("60")})

	res, err := env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{
		Month:        int2Ptr(10),
		Year:         int2Ptr(2024),
		SchoolYearID: sfPtr(env.schoolYear.ID),
		Actor:        "admin",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Affected)
	require.True(t, env.chargeForMonth(t, 10).BaseAmount.Equal(dec2("60")))
	require.True(t, env.chargeForMonth(t, 11).BaseAmount.Equal(dec2("50")))
}

func TestSyncPricesScopeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())

	_, err := env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{Month: int2Ptr(10)})
	require.ErrorIs(t, err, chargedomain.ErrMonthYearPairRequired)

	_, err = env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{Year: int2Ptr(2024)})
	require.ErrorIs(t, err, chargedomain.ErrMonthYearPairRequired)

	_, err = env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{
		Month: int2Ptr(10), Year: int2Ptr(2024),
	})
	require.ErrorIs(t, err, chargedomain.ErrSchoolYearRequired)

	_, err = env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{
		Month: int2Ptr(8), Year: int2Ptr(2024), SchoolYearID: sfPtr(env.schoolYear.ID),
	})
	require.ErrorIs(t, err, chargedomain.ErrMonthOutOfCalendar)
}

func TestSnapshotRequiresActiveConfig(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.snapshot.Freeze(ctx, chargedomain.FreezeRequest{
		Month: 10, Year: 2024, SchoolYearID: env.schoolYear.ID,
	})
	require.ErrorIs(t, err, chargedomain.ErrNoActiveConfig)

	_, err = env.snapshot.SyncPrices(ctx, chargedomain.SyncRequest{})
	require.ErrorIs(t, err, chargedomain.ErrNoActiveConfig)
}
