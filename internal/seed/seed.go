package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	paymentdomain "github.com/plantelhq/plantel/internal/payment/domain"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var defaultPaymentMethods = []string{
	"Transferencia",
	"Pago móvil",
	"Efectivo",
	"Zelle",
}

// Options customizes the baseline rows EnsureBaseline creates.
type Options struct {
	// Periodo labels the school year to ensure, e.g. "2025-2026". Empty
	// derives the label from the current date: a year starting in
	// September.
	Periodo string
	// SkipConfig leaves the billing configuration table alone even when
	// no active version exists.
	SkipConfig bool
}

// EnsureBaseline seeds the rows a fresh install needs before the first
// enrollment: one school year, the default payment methods and an initial
// billing configuration. Every ensure is a find-or-create, so re-running
// against a populated database changes nothing.
func EnsureBaseline(db *gorm.DB, opts Options) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureSchoolYearTx(ctx, tx, node, resolvePeriodo(opts.Periodo)); err != nil {
			return err
		}
		if err := ensurePaymentMethodsTx(ctx, tx, node); err != nil {
			return err
		}
		if opts.SkipConfig {
			return nil
		}
		return ensureBillingConfigTx(ctx, tx, node)
	})
}

func resolvePeriodo(periodo string) string {
	if periodo != "" {
		return periodo
	}
	now := time.Now().UTC()
	start := now.Year()
	if int(now.Month()) < schoolyeardomain.DefaultStartMonth {
		start--
	}
	return fmt.Sprintf("%d-%d", start, start+1)
}

func ensureSchoolYearTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, periodo string) (*schoolyeardomain.SchoolYear, error) {
	var sy schoolyeardomain.SchoolYear
	err := tx.WithContext(ctx).Where("periodo = ?", periodo).First(&sy).Error
	if err == nil {
		return &sy, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	sy = schoolyeardomain.SchoolYear{
		ID:         node.Generate(),
		Periodo:    periodo,
		StartMonth: schoolyeardomain.DefaultStartMonth,
		EndMonth:   schoolyeardomain.DefaultEndMonth,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(&sy).Error; err != nil {
		return nil, err
	}
	return &sy, nil
}

func ensurePaymentMethodsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	for _, name := range defaultPaymentMethods {
		var method paymentdomain.PaymentMethod
		err := tx.WithContext(ctx).Where("name = ?", name).First(&method).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		method = paymentdomain.PaymentMethod{
			ID:        node.Generate(),
			Name:      name,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&method).Error; err != nil {
			return err
		}
	}
	return nil
}

// ensureBillingConfigTx inserts version 1 with zeroed prices so the admin
// surface has a row to edit. The generator still refuses to run until a
// real price is set, since a zero base amount bills nothing meaningful.
func ensureBillingConfigTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var cfg configdomain.BillingConfiguration
	err := tx.WithContext(ctx).Where("active = ?", true).First(&cfg).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	cfg = configdomain.BillingConfiguration{
		ID:             node.Generate(),
		Version:        1,
		Active:         true,
		PrimaryPrice:   decimal.Zero,
		SecondaryPrice: decimal.Zero,
		MoraRatePct:    decimal.Zero,
		MoraCapPct:     decimal.Zero,
		GraceDays:      0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return tx.WithContext(ctx).Create(&cfg).Error
}
