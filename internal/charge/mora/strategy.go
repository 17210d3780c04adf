// Package mora computes the late-payment penalty accrued on an overdue
// charge. The exact formula is a product decision still being validated
// against real billing examples, so it sits behind a narrow strategy
// interface and the rest of the engine never assumes compounding or
// cutoff semantics.
package mora

import (
	"time"

	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/shopspring/decimal"
)

type Strategy interface {
	// Accrue returns the penalty owed at asOf for a charge under the given
	// terms. Terms carry the applied parameters: the frozen snapshot for a
	// frozen charge, the live configuration otherwise.
	Accrue(t chargedomain.Terms, asOf time.Time) decimal.Decimal
}

// DailySimple charges simple (non-compounding) interest per overdue day:
// days past the due date minus the grace window, times the daily rate,
// against the base amount, capped at base times the cap fraction. When a
// cutoff date is set, accrual cannot start before it.
type DailySimple struct{}

func (DailySimple) Accrue(t chargedomain.Terms, asOf time.Time) decimal.Decimal {
	if t.DueDate.IsZero() || t.Base.IsZero() || t.Rate.IsZero() {
		return decimal.Zero
	}

	start := t.DueDate
	if t.Cutoff != nil && t.Cutoff.After(start) {
		start = *t.Cutoff
	}

	days := int64(asOf.Sub(start).Hours() / 24)
	days -= int64(t.GraceDays)
	if days <= 0 {
		return decimal.Zero
	}

	accrued := t.Base.Mul(t.Rate).Mul(decimal.NewFromInt(days))
	if t.Cap.IsPositive() {
		cap := t.Base.Mul(t.Cap)
		if accrued.GreaterThan(cap) {
			accrued = cap
		}
	}
	return accrued.Round(2)
}
